package value

// Tag the value type tag shared with the client
type Tag uint8

// Type tags. The numbering is part of the wire contract and must not change.
const (
	TagInvalid   Tag = 0
	TagNull      Tag = 1
	TagBool      Tag = 2
	TagInteger   Tag = 3
	TagDouble    Tag = 4
	TagString    Tag = 5
	TagArray     Tag = 6
	TagDate      Tag = 8
	TagSymbol    Tag = 9
	TagObject    Tag = 10
	TagUndefined Tag = 11

	TagFunction          Tag = 100
	TagSharedArrayBuffer Tag = 101
	TagArrayBuffer       Tag = 102
	TagPromise           Tag = 103

	TagExecuteException    Tag = 200
	TagParseException      Tag = 201
	TagOOMException        Tag = 202
	TagTimeoutException    Tag = 203
	TagTerminatedException Tag = 204
	TagValueException      Tag = 205
	TagKeyException        Tag = 206
)

// IsError check if the tag is an error tag
func (tag Tag) IsError() bool {
	return tag >= TagExecuteException
}

// String the tag name
func (tag Tag) String() string {
	switch tag {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagInteger:
		return "integer"
	case TagDouble:
		return "double"
	case TagString:
		return "string"
	case TagArray:
		return "array"
	case TagDate:
		return "date"
	case TagSymbol:
		return "symbol"
	case TagObject:
		return "object"
	case TagUndefined:
		return "undefined"
	case TagFunction:
		return "function"
	case TagSharedArrayBuffer:
		return "shared_array_buffer"
	case TagArrayBuffer:
		return "array_buffer"
	case TagPromise:
		return "promise"
	case TagExecuteException:
		return "execute_exception"
	case TagParseException:
		return "parse_exception"
	case TagOOMException:
		return "oom_exception"
	case TagTimeoutException:
		return "timeout_exception"
	case TagTerminatedException:
		return "terminated_exception"
	case TagValueException:
		return "value_exception"
	case TagKeyException:
		return "key_exception"
	}
	return "invalid"
}

// Handle the fixed record returned to the client. The address of the Handle
// embedded in a Value is the client's identity for that Value, so a Handle
// is never copied out of its owning Value.
type Handle struct {
	intVal   int64
	floatVal float64
	bytes    []byte
	Len      uint64
	Tag      Tag
}

// Int the inline integer payload
func (h *Handle) Int() int64 {
	return h.intVal
}

// Float the inline double payload
func (h *Handle) Float() float64 {
	return h.floatVal
}

// Bool the inline boolean payload
func (h *Handle) Bool() bool {
	return h.intVal != 0
}

// Bytes the byte payload. For string and exception values the slice holds
// Len UTF-8 bytes followed by a terminating zero byte.
func (h *Handle) Bytes() []byte {
	return h.bytes
}

// String the byte payload decoded as UTF-8, without the trailing zero
func (h *Handle) String() string {
	if h.bytes == nil {
		return ""
	}
	return string(h.bytes[:h.Len])
}
