package racer

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/racer/isolate"
	"github.com/yaoapp/racer/value"
)

// heapReporter reports fun facts about the isolate heap
type heapReporter struct {
	factory *value.Factory
}

// Stats the stable subset of heap statistics as a JSON string value
func (reporter *heapReporter) Stats(env *isolate.Env) *value.Value {
	stat := env.Iso.GetHeapStatistics()

	doc := map[string]uint64{
		"total_physical_size":        stat.TotalPhysicalSize,
		"total_heap_size_executable": stat.TotalHeapSizeExecutable,
		"total_heap_size":            stat.TotalHeapSize,
		"used_heap_size":             stat.UsedHeapSize,
		"heap_size_limit":            stat.HeapSizeLimit,
	}

	data, err := jsoniter.Marshal(doc)
	if err != nil {
		return reporter.factory.FromError(err, value.TagExecuteException)
	}

	return reporter.factory.FromString(string(data), value.TagString)
}

// Snapshot the full heap statistics record as a JSON string value. The
// engine binding has no heap snapshot serializer, so the snapshot carries
// every statistic the engine reports.
func (reporter *heapReporter) Snapshot(env *isolate.Env) *value.Value {
	stat := env.Iso.GetHeapStatistics()

	doc := map[string]uint64{
		"total_heap_size":             stat.TotalHeapSize,
		"total_heap_size_executable":  stat.TotalHeapSizeExecutable,
		"total_physical_size":         stat.TotalPhysicalSize,
		"total_available_size":        stat.TotalAvailableSize,
		"used_heap_size":              stat.UsedHeapSize,
		"heap_size_limit":             stat.HeapSizeLimit,
		"malloced_memory":             stat.MallocedMemory,
		"external_memory":             stat.ExternalMemory,
		"peak_malloced_memory":        stat.PeakMallocedMemory,
		"number_of_native_contexts":   stat.NumberOfNativeContexts,
		"number_of_detached_contexts": stat.NumberOfDetachedContexts,
	}

	data, err := jsoniter.Marshal(doc)
	if err != nil {
		return reporter.factory.FromError(err, value.TagExecuteException)
	}

	return reporter.factory.FromString(string(data), value.TagString)
}
