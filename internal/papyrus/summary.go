package papyrus

// Summary is a flat digest of a document, cheap to cache and print.
type Summary struct {
	Game        string `json:"game" msgpack:"game"`
	Bytes       int    `json:"bytes" msgpack:"bytes"`
	Header      uint16 `json:"header" msgpack:"header"`
	RuntimeID   uint32 `json:"runtime_id" msgpack:"runtime_id"`
	SaveVersion uint16 `json:"save_version,omitempty" msgpack:"save_version,omitempty"`

	Strings         int    `json:"strings" msgpack:"strings"`
	StringMode      string `json:"string_mode" msgpack:"string_mode"`
	Scripts         int    `json:"scripts" msgpack:"scripts"`
	Structs         int    `json:"structs" msgpack:"structs"`
	ScriptInstances int    `json:"script_instances" msgpack:"script_instances"`
	References      int    `json:"references" msgpack:"references"`
	StructInstances int    `json:"struct_instances" msgpack:"struct_instances"`
	Arrays          int    `json:"arrays" msgpack:"arrays"`
	ActiveScripts   int    `json:"active_scripts" msgpack:"active_scripts"`
	Messages        int    `json:"function_messages" msgpack:"function_messages"`
	Suspended       int    `json:"suspended_stacks" msgpack:"suspended_stacks"`
	Unbinds         int    `json:"unbinds" msgpack:"unbinds"`
	RemainingBytes  int    `json:"remaining_bytes" msgpack:"remaining_bytes"`

	Undefined  UndefinedCounts `json:"undefined" msgpack:"undefined"`
	Unattached int             `json:"unattached" msgpack:"unattached"`
	Terminated int             `json:"terminated" msgpack:"terminated"`
	Waiting    int             `json:"suspended_threads" msgpack:"suspended_threads"`

	Truncated        bool   `json:"truncated" msgpack:"truncated"`
	TruncationCause  string `json:"truncation_cause,omitempty" msgpack:"truncation_cause,omitempty"`
	MissingStrings   int    `json:"missing_strings,omitempty" msgpack:"missing_strings,omitempty"`
	StringTableFixed bool   `json:"string_table_corrected" msgpack:"string_table_corrected"`
}

// Summary digests the document in its current state.
func (d *Document) Summary() Summary {
	s := Summary{
		Game:             d.variant.String(),
		Bytes:            d.Size(),
		Header:           d.Header,
		RuntimeID:        d.RuntimeID,
		SaveVersion:      d.saveVersion,
		Strings:          d.strings.Len(),
		StringMode:       d.strings.Mode().String(),
		Scripts:          len(d.scripts),
		Structs:          len(d.structs),
		ScriptInstances:  d.scriptInstances.Len(),
		References:       d.references.Len(),
		StructInstances:  d.structInstances.Len(),
		Arrays:           d.arrays.Len(),
		ActiveScripts:    d.activeScripts.Len(),
		Messages:         len(d.functionMessages),
		Suspended:        len(d.suspended1) + len(d.suspended2),
		Unbinds:          len(d.unbinds.Entries),
		RemainingBytes:   len(d.remaining),
		Undefined:        d.CountUndefinedElements(),
		Unattached:       d.CountUnattachedInstances(),
		Truncated:        d.truncated,
		MissingStrings:   d.strings.MissingCount(),
		StringTableFixed: d.strings.Corrected(),
	}
	if d.truncCause != nil {
		s.TruncationCause = d.truncCause.Error()
	}
	for _, a := range d.activeScripts.All() {
		if a.IsTerminated() {
			s.Terminated++
		}
		if a.IsSuspended() {
			s.Waiting++
		}
	}
	return s
}
