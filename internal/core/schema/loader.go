// Package schema fetches a category's attribute schema from the catalog and
// normalises its response shapes into an ordered attribute list.
package schema

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/seecat/internal/apperr"
	"github.com/agenthands/seecat/internal/core/model"
)

// CatalogSource returns the raw attribute definitions of a category.
type CatalogSource interface {
	Fetch(ctx context.Context, categoryCode string) ([]byte, error)
}

type Loader struct {
	Source  CatalogSource
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewLoader(source CatalogSource, timeout time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		Source:  source,
		Timeout: timeout,
		Logger:  logger,
	}
}

// Fetch returns the raw catalog body for categoryCode, bounded by the
// loader's timeout.
func (l *Loader) Fetch(ctx context.Context, categoryCode string) ([]byte, error) {
	categoryCode = strings.TrimSpace(categoryCode)
	if categoryCode == "" {
		return nil, apperr.MissingParameter("category_code")
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	body, err := l.Source.Fetch(ctx, categoryCode)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUpstreamFetch, err, "failed to fetch material categories")
	}
	return body, nil
}

// Load fetches and parses the schema of categoryCode.
func (l *Loader) Load(ctx context.Context, categoryCode string) (*model.SchemaResponse, error) {
	start := time.Now()
	body, err := l.Fetch(ctx, categoryCode)
	if err != nil {
		return nil, err
	}

	shape, attrs, err := ParseAttributes(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrSchemaFormat, err, "Invalid data format")
	}

	l.Logger.Debug("schema loaded",
		zap.String("category_code", categoryCode),
		zap.String("shape", shape),
		zap.Int("attributes", len(attrs)),
		zap.Duration("took", time.Since(start)),
	)

	return &model.SchemaResponse{
		CategoryCode: strings.TrimSpace(categoryCode),
		Shape:        shape,
		Attributes:   attrs,
		Body:         body,
	}, nil
}
