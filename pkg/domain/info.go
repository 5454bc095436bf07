package domain

// StateInfo is a read-only snapshot of a frozen state.
type StateInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Parent   string   `json:"parent" yaml:"parent"`
	Children []string `json:"children" yaml:"children"`
	IsAsync  bool     `json:"is_async" yaml:"is_async"`
}

// IsZero reports whether the snapshot is the empty value returned for unknown states.
func (i StateInfo) IsZero() bool {
	return i.Name == "" && i.Parent == "" && len(i.Children) == 0 && !i.IsAsync
}
