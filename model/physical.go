package model

// AvroSuffix is appended to the physical name of logs holding Avro encoded messages.
const AvroSuffix = "_avro"

// PhysicalTopic is the set of concrete logs backing one logical topic.
// It is either a single log or, during an encoding migration, a pair of logs.
type PhysicalTopic struct {
	primary   string
	secondary string
}

// Single returns a physical topic backed by exactly one log.
func Single(name string) PhysicalTopic {
	return PhysicalTopic{primary: name}
}

// Dual returns a physical topic backed by the log of the original encoding and the log
// of the new encoding.
func Dual(oldName, newName string) PhysicalTopic {
	return PhysicalTopic{primary: oldName, secondary: newName}
}

// IsDual reports whether two logs back the topic.
func (p PhysicalTopic) IsDual() bool {
	return p.secondary != ""
}

// Names returns the log names, original encoding first.
func (p PhysicalTopic) Names() []string {
	if p.IsDual() {
		return []string{p.primary, p.secondary}
	}
	return []string{p.primary}
}

// NamesMapper maps logical topics to the logs backing them.
type NamesMapper struct {
	// Namespace is prepended to every log name as "<namespace>_<name>" when set.
	Namespace string
}

// NewNamesMapper creates a mapper for the given namespace (empty for none).
func NewNamesMapper(namespace string) NamesMapper {
	return NamesMapper{Namespace: namespace}
}

// ToPhysical resolves the logs backing a logical topic.
func (m NamesMapper) ToPhysical(topic LogicalTopic) (PhysicalTopic, error) {
	base := m.logName(topic.Name)
	switch topic.ContentType {
	case ContentTypeJSON:
		return Single(base), nil
	case ContentTypeAvro:
		if topic.MigratedFromJSON {
			return Dual(base, base+AvroSuffix), nil
		}
		return Single(base + AvroSuffix), nil
	default:
		return PhysicalTopic{}, ErrUnknownContentType
	}
}

func (m NamesMapper) logName(name string) string {
	if m.Namespace == "" {
		return name
	}
	return m.Namespace + "_" + name
}
