package models

// Frame is one streamed state of the animated surface. Geometry is sent in
// float32 because that is what GPU buffers take.
type Frame struct {
	Seq      uint64          `json:"seq"`
	Asset    string          `json:"asset"`
	Horizon  Horizon         `json:"horizon"`
	Progress float64         `json:"progress"`
	Hard     bool            `json:"hard"`
	Empty    bool            `json:"empty"`
	StepsX   int             `json:"steps_x"`
	StepsZ   int             `json:"steps_z"`
	Render   *ConeRenderData `json:"render,omitempty"`
	// Indices and UVs are only sent with hard installs; the topology does not
	// change between morphs of the same shape.
	Indices   []uint32  `json:"indices,omitempty"`
	UVs       []float32 `json:"uvs,omitempty"`
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
}
