// Package results normalises the tagged payloads of the ranked-results endpoint
// into one ordered batch of local and meta-search results.
package results

// Kind discriminates the Result variants.
type Kind string

const (
	KindLocal Kind = "local"
	KindMeta  Kind = "meta"
)

// Header holds the fields every result carries. ID is assigned client-side.
type Header struct {
	ID    int    `json:"id" msgpack:"id"`
	URL   string `json:"url" msgpack:"url"`
	Title string `json:"title" msgpack:"title"`
}

// Result is either a Local or a Meta result.
type Result interface {
	Kind() Kind
	Head() Header
	isResult()
}

// Local is a document ranked by the local index.
type Local struct {
	Header
	Content string `json:"content" msgpack:"content"`
}

// Meta is a result taken from a third-party engine.
type Meta struct {
	Header
	Engine string   `json:"engine" msgpack:"engine"`
	Images []string `json:"images,omitempty" msgpack:"images,omitempty"`
}

func (Local) Kind() Kind     { return KindLocal }
func (l Local) Head() Header { return l.Header }
func (Local) isResult()      {}

func (Meta) Kind() Kind     { return KindMeta }
func (m Meta) Head() Header { return m.Header }
func (Meta) isResult()      {}

// Content returns the text a summary can be built from. Meta results have none.
func Content(r Result) string {
	if l, ok := r.(Local); ok {
		return l.Content
	}
	return ""
}

// View is the flat shape results take on the wire towards clients.
type View struct {
	Type    Kind     `json:"type" msgpack:"type"`
	ID      int      `json:"id" msgpack:"id"`
	URL     string   `json:"url" msgpack:"url"`
	Title   string   `json:"title" msgpack:"title"`
	Content string   `json:"content,omitempty" msgpack:"content,omitempty"`
	Engine  string   `json:"engine,omitempty" msgpack:"engine,omitempty"`
	Images  []string `json:"images,omitempty" msgpack:"images,omitempty"`
}

// ToView flattens r.
func ToView(r Result) View {
	h := r.Head()
	v := View{Type: r.Kind(), ID: h.ID, URL: h.URL, Title: h.Title}
	switch res := r.(type) {
	case Local:
		v.Content = res.Content
	case Meta:
		v.Engine = res.Engine
		v.Images = res.Images
	}
	return v
}

// Views flattens a batch.
func Views(rs []Result) []View {
	out := make([]View, len(rs))
	for i, r := range rs {
		out[i] = ToView(r)
	}
	return out
}
