// Package assemble merges the pipeline's partial results into one record and
// enforces the output contract.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/config"
	"github.com/agenthands/seecat/internal/core/model"
)

type Input struct {
	// Declared lists the non-identity schema attributes, schema order.
	Declared  []string
	Identity  model.IdentityMapping
	Inference *model.Inference
	Taxonomy  model.TaxonomyBlock
	Families  *config.Families
}

// Assemble builds the record. Inferred attributes are emitted in schema
// order. Every violation found is reported in one ContractViolation error.
func Assemble(in Input) (*model.EnrichedRecord, error) {
	if in.Inference == nil {
		return nil, apperr.New(apperr.ErrContractViolation, "no inference to assemble")
	}
	inf := in.Inference

	var errs []error
	var repeated []string

	inferred := make(map[string]model.InferredAttribute, len(inf.Attributes))
	for _, a := range inf.Attributes {
		if _, ok := inferred[a.Name]; ok {
			repeated = append(repeated, a.Name)
			continue
		}
		inferred[a.Name] = a
	}
	declared := make(map[string]bool, len(in.Declared))
	attrs := make([]model.InferredAttribute, 0, len(in.Declared))
	for _, name := range in.Declared {
		if declared[name] {
			repeated = append(repeated, name)
			continue
		}
		declared[name] = true
		a, ok := inferred[name]
		if !ok {
			errs = append(errs, fmt.Errorf("declared attribute %q is missing", name))
			continue
		}
		attrs = append(attrs, a)
	}
	for _, a := range inf.Attributes {
		if !declared[a.Name] {
			errs = append(errs, fmt.Errorf("attribute %q is not declared by the category schema", a.Name))
		}
	}

	rec := &model.EnrichedRecord{
		Identity:   in.Identity,
		Attributes: attrs,
		Category:   inf.Category,
		Taxonomy:   in.Taxonomy,
	}

	keys := append(rec.Keys(), inf.RepeatedBlocks...)
	for _, k := range duplicates(keys, repeated) {
		errs = append(errs, fmt.Errorf("duplicate key %q", k))
	}

	if !inf.Category.Category.Valid() {
		errs = append(errs, fmt.Errorf("%s.CATEGORY %q is not one of %s", model.CategoryKey, inf.Category.Category, categoryList()))
	}
	if strings.TrimSpace(inf.Category.Explanation) == "" {
		errs = append(errs, fmt.Errorf("%s.EXPLANATION is empty", model.CategoryKey))
	}

	if err := checkFamily(in.Families, in.Taxonomy.Commodity); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, apperr.Wrap(apperr.ErrContractViolation, errors.Join(errs...), "enrichment result violates the output contract")
	}
	return rec, nil
}

// duplicates lists, in first-seen order, the keys that occur more than once
// in keys, followed by those in repeated.
func duplicates(keys, repeated []string) []string {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}
	var out []string
	seen := make(map[string]bool)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range keys {
		if counts[k] > 1 {
			add(k)
		}
	}
	for _, k := range repeated {
		add(k)
	}
	return out
}

func checkFamily(fs *config.Families, commodity *string) error {
	if commodity == nil {
		return nil
	}
	f, ok := fs.ByClass(*commodity)
	if !ok || f.Allows(*commodity) {
		return nil
	}
	if f.HasFallback() {
		return fmt.Errorf("commodity %s is not in the %s table; expected one of its codes or fallback %s", *commodity, f.Name, f.Fallback)
	}
	return fmt.Errorf("commodity %s is not in the %s table; expected one of its codes or %s", *commodity, f.Name, model.UncertainCommodity)
}

func categoryList() string {
	names := make([]string, len(model.Categories))
	for i, c := range model.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
