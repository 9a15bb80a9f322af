package freeblocks

import "github.com/launchdarkly/go-jsonstream/v3/jwriter"

// WriteJSON writes a summary of the index plus both orderings of its extents
// as fields of obj.
func (f *FreeBlocks) WriteJSON(obj *jwriter.ObjectState) {
	obj.Name("size").Int(int(f.size))
	obj.Name("available").Int(int(f.Available()))
	obj.Name("count").Int(f.Count())
	obj.Name("freeBytes").Float64(float64(f.FreeBytes()))

	writeExtents(obj.Name("byOffset"), f.Extents())
	writeExtents(obj.Name("bySize"), f.BySize())
}

func writeExtents(w *jwriter.Writer, extents []Extent) {
	arr := w.Array()
	for _, e := range extents {
		item := arr.Object()
		item.Name("offset").Int(int(e.Offset))
		item.Name("length").Int(int(e.Length))
		item.End()
	}
	arr.End()
}

// MarshalJSON renders the index as a JSON object.
func (f *FreeBlocks) MarshalJSON() ([]byte, error) {
	w := jwriter.NewWriter()
	obj := w.Object()
	f.WriteJSON(&obj)
	obj.End()
	return w.Bytes(), w.Error()
}
