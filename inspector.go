package racer

import (
	"github.com/yaoapp/racer/inspect"
	"github.com/yaoapp/racer/value"
)

// InspectSource expose the live runtime to the inspector endpoints
func InspectSource() inspect.Source {
	return inspectSource{}
}

type inspectSource struct{}

func (inspectSource) Version() string {
	return Version()
}

func (inspectSource) Contexts() []inspect.ContextInfo {
	infos := []inspect.ContextInfo{}
	for _, id := range ContextIDs() {
		infos = append(infos, inspect.ContextInfo{ID: id, Values: ValueCount(id)})
	}
	return infos
}

func (inspectSource) HeapStats(id uint64) (string, bool) {
	handle := HeapStats(id)
	if handle == nil {
		return "", false
	}
	defer FreeValue(id, handle)

	if handle.Tag != value.TagString {
		return "", false
	}
	return handle.String(), true
}
