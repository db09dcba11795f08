package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core/model"
)

// Stage selects which part of the record a prompt asks for.
type Stage int

const (
	// StageFull asks for attributes, category and commodity in one call.
	StageFull Stage = iota
	// StageAttributes asks for attribute values only.
	StageAttributes
	// StageClassification asks for the category and commodity only.
	StageClassification
)

func (s Stage) String() string {
	switch s {
	case StageAttributes:
		return "attributes"
	case StageClassification:
		return "classification"
	default:
		return "full"
	}
}

func (s Stage) wantsAttributes() bool     { return s != StageClassification }
func (s Stage) wantsClassification() bool { return s != StageAttributes }

// PromptInput carries everything the system prompt is built from.
type PromptInput struct {
	MaterialName   string
	Attributes     []string
	Identity       model.IdentityMapping
	IdentityNames  []string
	Families       *config.Families
	UnspscRevision string
}

const defaultRevision = "v26.0801"

// BuildSystemPrompt renders the system prompt for one stage.
func BuildSystemPrompt(stage Stage, in PromptInput) (string, error) {
	rev := in.UnspscRevision
	if rev == "" {
		rev = defaultRevision
	}

	var b strings.Builder
	b.WriteString("You are an expert material master data engineer specialized in railway industry materials and UNSPSC classification.\n\n")
	switch stage {
	case StageAttributes:
		b.WriteString("Your task is to normalize and enrich a material name into structured technical attributes.\n\n")
	case StageClassification:
		b.WriteString("Your task is to classify a material name into a category and a UNSPSC code.\n\n")
	default:
		b.WriteString("Your task is to normalize, enrich, and classify a material name into structured technical attributes, category, and UNSPSC code.\n\n")
	}

	if stage.wantsClassification() {
		b.WriteString("IMPORTANT UNSPSC RULE (CRITICAL):\n")
		b.WriteString("- You MUST determine ONLY the UNSPSC COMMODITY code (8 digits).\n\n")
	}

	quoted, err := quote(in.MaterialName)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "INPUT:\n- material_name: %s\n\n", quoted)

	b.WriteString("OBJECTIVES:\n\n")
	n := 1
	if stage.wantsAttributes() {
		fmt.Fprintf(&b, "%d. TECHNICAL ATTRIBUTE EXTRACTION\n", n)
		fmt.Fprintf(&b, "  - Define and extract technical attributes based on: %s\n", strings.Join(in.Attributes, ", "))
		b.WriteString("  - Analyze the material name and extract attributes using:\n")
		b.WriteString("    a. Explicit information stated in the material name\n")
		b.WriteString("    b. Implicit information derived from:\n")
		b.WriteString("       - Part numbering conventions\n")
		b.WriteString("       - International standards (ISO, DIN, ANSI, JIS)\n")
		b.WriteString("       - Common mechanical & electrical engineering rules\n")
		b.WriteString("  - Do NOT fabricate values. If a value cannot be determined with confidence, set it to null.\n\n")
		n++
	}
	if stage.wantsClassification() {
		fmt.Fprintf(&b, "%d. CATEGORY CLASSIFICATION (RAILWAY INDUSTRY CONTEXT)\n", n)
		b.WriteString("  - Determine ONE most appropriate category:\n")
		for _, c := range model.Categories {
			fmt.Fprintf(&b, "    - %s\n", c)
		}
		b.WriteString("  - Classification must follow railway maintenance and asset management practice.\n")
		b.WriteString("  - Explanation with reason refer to railway industry standards or common railway practice.\n\n")
		n++

		fmt.Fprintf(&b, "%d. UNSPSC CLASSIFICATION (%s, STRICT)\n", n, rev)
		b.WriteString("  - Select the most appropriate UNSPSC COMMODITY code\n")
		fmt.Fprintf(&b, "  - Use the UNSPSC %s classification system\n", rev)
		fmt.Fprintf(&b, "  - Explanation with reason must be concise and precise refer to UNSPSC %s\n", rev)
		b.WriteString("  - Do NOT infer UNSPSC descriptions\n")
		writeFamilies(&b, in.Families)
		fmt.Fprintf(&b, "  - If unsure, return %s\n\n", model.UncertainCommodity)
	}

	if stage.wantsAttributes() {
		b.WriteString("ATTRIBUTE VALUE FORMATTING RULES (CRITICAL):\n")
		b.WriteString("- ATTRIBUTE_VALUE must be in UPPERCASE\n")
		b.WriteString("- ATTRIBUTE_VALUE MUST use SPACE to separate words, brands, series, and model identifiers\n")
		b.WriteString("  - Example: \"INTEL CORE I7\", \"ATI RADEON\", \"LENOVO THINKPAD\"\n")
		b.WriteString("- Units of measure MUST remain concatenated WITHOUT SPACE\n")
		b.WriteString("  - Example: \"16GB\", \"512GB\", \"220V\", \"50HZ\"\n")
		b.WriteString("- Do NOT remove or merge words that are commonly written as separate terms\n")
		b.WriteString("- Alphanumeric product series must remain readable and correctly spaced\n\n")
	}

	b.WriteString("OUTPUT RULES:\n")
	b.WriteString("- Output MUST be valid JSON only\n")
	b.WriteString("- Do NOT include markdown, comments, or explanations\n")
	b.WriteString("- Output MUST be a SINGLE JSON object\n")
	b.WriteString("- Output MUST be in English\n")
	if stage.wantsAttributes() {
		if len(in.IdentityNames) > 0 {
			fmt.Fprintf(&b, "- Use ATTRIBUTE_NAME exactly as provided (case-sensitive), BUT SKIP FOR %s\n", strings.Join(in.IdentityNames, ", "))
		} else {
			b.WriteString("- Use ATTRIBUTE_NAME exactly as provided (case-sensitive)\n")
		}
		b.WriteString("- If an attribute has no value, set it to null. Do NOT omit attributes.\n")
	}
	b.WriteString("\n")

	if stage.wantsAttributes() && len(in.Identity) > 0 {
		identity, err := in.Identity.MarshalJSON()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "FIXED IDENTITY ATTRIBUTES (do not change, do not repeat):\n%s\n\n", identity)
	}

	b.WriteString("FINAL OUTPUT SCHEMA (STRICT):\n{\n")
	if stage.wantsAttributes() {
		b.WriteString("  \"<ATTRIBUTE_NAME>\": \"<ATTRIBUTE_VALUE or null>\"")
		if stage.wantsClassification() {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if stage.wantsClassification() {
		fmt.Fprintf(&b, "  %q: {\n", model.CategoryKey)
		fmt.Fprintf(&b, "    \"CATEGORY\": %q,\n", joinCategories())
		b.WriteString("    \"EXPLANATION\": \"<EXPLANATION>\"\n  },\n")
		fmt.Fprintf(&b, "  %q: {\n", model.TaxonomyKey)
		b.WriteString("    \"COMMODITY\": \"<COMMODITY_CODE>\",\n")
		b.WriteString("    \"EXPLANATION\": \"<EXPLANATION>\"\n  }\n")
	}
	b.WriteString("}\n")

	return b.String(), nil
}

// BuildUserPrompt returns the user message: the JSON-quoted material name.
func BuildUserPrompt(materialName string) (string, error) {
	return quote(materialName)
}

// quote JSON-encodes s without HTML escaping.
func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func writeFamilies(b *strings.Builder, fs *config.Families) {
	if fs == nil {
		return
	}
	for _, f := range fs.Families {
		label := strings.ToUpper(f.Name)
		cond := label
		if len(f.Keywords) > 0 {
			cond = fmt.Sprintf("%s (material name mentions %s)", label, strings.ToUpper(strings.Join(f.Keywords, " or ")))
		}
		fmt.Fprintf(b, "  - IF %s, use CLASS %s %s then select ONE the most appropriate UNSPSC COMMODITY CODE:\n", cond, f.Class, f.ClassName)
		for _, c := range f.Codes {
			fmt.Fprintf(b, "      %s\t%s\n", c.Code, c.Name)
		}
		if f.HasFallback() {
			fmt.Fprintf(b, "    IF not suitable for %s, choose %s\t%s\n", label, f.Fallback, f.FallbackName())
		} else {
			fmt.Fprintf(b, "    IF not suitable for %s, return %s\n", label, model.UncertainCommodity)
		}
	}
}

func joinCategories() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, " | ")
}
