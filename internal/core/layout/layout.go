// Package layout turns free-form invoice text into metadata using a layout:
// an ordered list of regex rules, each filling one metadata field from its
// first capture group.
package layout

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Rule is a compiled field rule.
type Rule struct {
	Kind    FieldKind
	Name    string
	Pattern *regexp.Regexp
}

// Compiled is a layout ready for evaluation.
type Compiled struct {
	Layout entity.Layout
	Rules  []Rule
}

// Compile checks every rule of l. Invalid regular expressions are errors;
// unknown field names and patterns without a capture group are returned as
// warnings and the rule is dropped.
func Compile(l entity.Layout) (*Compiled, []string, error) {
	c := &Compiled{Layout: l}
	var warnings []string
	for i, f := range l.Fields {
		kind := KindOf(f.Name, f.Key)
		if kind == FieldUnknown {
			warnings = append(warnings, fmt.Sprintf("rule %d: unknown field %q ignored", i+1, f.Name))
			continue
		}
		re, err := regexp.Compile(f.Regex)
		if err != nil {
			return nil, warnings, fmt.Errorf("rule %d (%s): invalid regex: %w", i+1, f.Name, err)
		}
		if re.NumSubexp() == 0 {
			warnings = append(warnings, fmt.Sprintf("rule %d (%s): regex has no capture group", i+1, f.Name))
			continue
		}
		if kind == FieldInvoiceDate {
			if _, err := GoLayout(l.DateFormat); err != nil {
				warnings = append(warnings, fmt.Sprintf("rule %d (%s): %v", i+1, f.Name, err))
			}
		}
		c.Rules = append(c.Rules, Rule{Kind: kind, Name: f.Name, Pattern: re})
	}
	return c, warnings, nil
}

// CompanyNames resolves the registered company name for a VAT number, or "".
type CompanyNames interface {
	CompanyName(ctx context.Context, vat string) string
}

// Evaluator applies compiled layouts to text.
type Evaluator struct {
	dates  *DateParser
	names  CompanyNames
	logger *slog.Logger
	now    func() time.Time
}

// NewEvaluator builds an evaluator. names may be nil to skip enrichment.
func NewEvaluator(dates *DateParser, names CompanyNames, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if dates == nil {
		dates = NewDateParser(nil)
	}
	return &Evaluator{dates: dates, names: names, logger: logger, now: time.Now}
}

// Apply runs the rules in order against text. Each rule takes the first capture
// group of its first match; rules that do not match leave their field unset.
// Every matching line-item rule starts a new item.
func (ev *Evaluator) Apply(c *Compiled, text string) entity.InvoiceMetadata {
	var md entity.InvoiceMetadata
	for _, r := range c.Rules {
		m := r.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(m[1])

		switch {
		case r.Kind == FieldIssuerVAT:
			md.IssuerVATNumber = StripCountryPrefix(value)
		case r.Kind == FieldAcquirerVAT:
			md.AcquirerVATNumber = StripCountryPrefix(value)
		case r.Kind == FieldInvoiceDate:
			d, err := ev.dates.Parse(value, c.Layout.DateFormat)
			if err != nil {
				ev.logger.Warn("layout.date_unparsed", "layout", c.Layout.Name, "value", value, "error", err)
				continue
			}
			md.InvoiceDate = d
		case r.Kind.IsItem():
			var item entity.LineItem
			itemSetters[r.Kind](&item, value)
			md.Items = append(md.Items, item)
		default:
			headerSetters[r.Kind](&md, value)
		}
	}
	return md
}

// Extract applies c to text, enriches the company name and substitutes the
// default metadata when nothing was found. It never fails.
func (ev *Evaluator) Extract(ctx context.Context, c *Compiled, text, filename string) entity.InvoiceMetadata {
	md := ev.Apply(c, text)
	if md.IsEmpty() {
		ev.logger.Warn("layout.no_fields_matched", "layout", c.Layout.Name, "file", filename)
		return entity.DefaultMetadata(filename, ev.now())
	}
	if md.IssuerVATNumber != "" && md.CompanyName == "" && ev.names != nil {
		md.CompanyName = ev.names.CompanyName(ctx, md.IssuerVATNumber)
	}
	if md.Items == nil {
		md.Items = []entity.LineItem{}
	}
	md.OriginalFileName = filename
	return md
}
