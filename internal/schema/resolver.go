package schema

// Resolver maps logical column keys to the headers they were declared with.
// It is built once per validation run.
type Resolver struct {
	keys map[string]map[string]string
}

// NewResolver indexes every column of every sheet in the schema
func NewResolver(wb *Workbook) *Resolver {
	r := &Resolver{keys: make(map[string]map[string]string)}
	if wb == nil {
		return r
	}
	for _, s := range wb.Sheets {
		m, ok := r.keys[s.Tabname]
		if !ok {
			m = make(map[string]string, len(s.Columns))
			r.keys[s.Tabname] = m
		}
		for _, c := range s.Columns {
			if _, exists := m[c.Key]; !exists {
				m[c.Key] = c.Name
			}
		}
	}
	return r
}

// Resolve returns the header name for ref on the given sheet. A ref that is
// not a declared key is treated as a literal header name.
func (r *Resolver) Resolve(sheet, ref string) string {
	if m, ok := r.keys[sheet]; ok {
		if name, ok := m[ref]; ok {
			return name
		}
	}
	return ref
}

// For binds the resolver to one sheet
func (r *Resolver) For(sheet string) func(ref string) string {
	return func(ref string) string {
		return r.Resolve(sheet, ref)
	}
}
