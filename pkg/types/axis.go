package types

// Axis is a named analytical dimension of a project's Test Book. Level
// numbers start at 1 and follow the order the axes were saved in.
type Axis struct {
	ID          int64       `json:"id"`
	ProjectID   int64       `json:"project_id"`
	LevelNumber int         `json:"level_number"`
	Label       string      `json:"label"`
	Values      []AxisValue `json:"values"`
}

// AxisValue is a permissible value of an axis. SortOrder starts at 1.
type AxisValue struct {
	ID         int64  `json:"id"`
	AxisID     int64  `json:"axis_id"`
	ValueLabel string `json:"value_label"`
	SortOrder  int    `json:"sort_order"`
}

// Position returns the sort order of label on the axis, or 0 when the label
// is not one of the axis values.
func (a *Axis) Position(label string) int {
	for _, v := range a.Values {
		if v.ValueLabel == label {
			return v.SortOrder
		}
	}
	return 0
}

// AxisInput is the payload for saving one axis. Values are raw labels;
// trimming and skipping of empty labels happen in the store.
type AxisInput struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}
