package values

// ValueType describes how a raw value was encoded in its payload.
type ValueType uint8

const (
	TypeUnknown ValueType = iota
	TypeString
	TypeInt
	TypeUInt
	TypeFloat
	TypeBool
)

// MetricData is one observed or derived value travelling through the pipeline.
type MetricData struct {
	ID        MetricID
	Labels    Labels
	Timestamp int64 // nanoseconds since the epoch
	Value     string
	Type      ValueType
	Binary    Binary
}

// Reset clears d for reuse, keeping label storage.
func (d *MetricData) Reset() {
	d.ID = MetricID{}
	d.Labels.Reset()
	d.Timestamp = 0
	d.Value = ""
	d.Type = TypeUnknown
	d.Binary = Binary{}
}

// CopyFrom makes d a deep copy of other.
func (d *MetricData) CopyFrom(other *MetricData) {
	d.ID = other.ID
	d.Labels.CopyFrom(&other.Labels)
	d.Timestamp = other.Timestamp
	d.Value = other.Value
	d.Type = other.Type
	d.Binary = other.Binary
}

// Batch is a reusable slice of MetricData handed between pipeline stages.
type Batch struct {
	Items []MetricData
}

// Reset empties the batch and keeps its capacity.
func (b *Batch) Reset() {
	for i := range b.Items {
		b.Items[i].Reset()
	}
	b.Items = b.Items[:0]
}

// Extend grows s by one element and returns it. Elements past len(s) are
// reused so their label storage survives.
func Extend(s []MetricData) ([]MetricData, *MetricData) {
	n := len(s)
	if n < cap(s) {
		s = s[:n+1]
		s[n].Reset()
	} else {
		s = append(s, MetricData{})
	}
	return s, &s[n]
}
