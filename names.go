package qdash

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/columns.yaml
var columnsYAML []byte

// ColumnName pairs a raw data column with the label the dashboard shows for it.
type ColumnName struct {
	Raw   string `yaml:"raw"`
	Label string `yaml:"label"`
}

// Translator maps raw column names to readable labels. Unmapped names pass through.
type Translator struct {
	pairs   []ColumnName
	toLabel map[string]string
	toRaw   map[string]string
}

// DefaultColumnNames is the shipped dictionary.
func DefaultColumnNames() []ColumnName {
	var pairs []ColumnName
	if e := yaml.Unmarshal(columnsYAML, &pairs); e != nil {
		panic(fmt.Errorf("bad embedded column dictionary: %w", e))
	}

	return pairs
}

func NewTranslator(pairs []ColumnName) (*Translator, error) {
	tr := &Translator{
		toLabel: make(map[string]string, len(pairs)),
		toRaw:   make(map[string]string, len(pairs)),
	}

	for _, p := range pairs {
		if p.Raw == "" || p.Label == "" {
			return nil, fmt.Errorf("%w: empty entry in column dictionary", ErrMalformedInput)
		}

		if _, ok := tr.toLabel[p.Raw]; ok {
			return nil, fmt.Errorf("%w: column %s mapped twice", ErrMalformedInput, p.Raw)
		}

		if prior, ok := tr.toRaw[p.Label]; ok {
			return nil, fmt.Errorf("%w: label %q used by %s and %s", ErrMalformedInput, p.Label, prior, p.Raw)
		}

		tr.toLabel[p.Raw] = p.Label
		tr.toRaw[p.Label] = p.Raw
		tr.pairs = append(tr.pairs, p)
	}

	return tr, nil
}

func (tr *Translator) Label(raw string) string {
	if l, ok := tr.toLabel[raw]; ok {
		return l
	}

	return raw
}

func (tr *Translator) Raw(label string) string {
	if r, ok := tr.toRaw[label]; ok {
		return r
	}

	return label
}

// Labels returns the labels in dictionary order.
func (tr *Translator) Labels() []string {
	labels := make([]string, 0, len(tr.pairs))
	for _, p := range tr.pairs {
		labels = append(labels, p.Label)
	}

	return labels
}

// Apply renames the headers of t. It returns a new Table; t is unchanged.
func (tr *Translator) Apply(t *Table) (*Table, error) {
	return t.Rename(tr.toLabel)
}
