package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Информационные
	PapInfo            Code = 1000
	PapStringTableMode Code = 1001

	// Чтение секции
	LoadInfo                 Code = 2000
	LoadTruncated            Code = 2001
	LoadSizeMismatch         Code = 2002
	LoadStringTableTruncated Code = 2003
	LoadStringTableBug       Code = 2004
	LoadFormat               Code = 2005
	LoadMissingData          Code = 2006

	// Граф объектов
	GraphInfo              Code = 3000
	GraphParentCycle       Code = 3001
	GraphUnresolvedParent  Code = 3002
	GraphUndefinedInstance Code = 3003
	GraphMemberMismatch    Code = 3004
	GraphUnattached        Code = 3005
	GraphTerminatedThread  Code = 3006
	GraphUndefinedThread   Code = 3007

	// Запись
	WriteInfo    Code = 4000
	WriteRefused Code = 4001

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		PapInfo:                  "Papyrus information",
		PapStringTableMode:       "String table index width",
		LoadInfo:                 "Load information",
		LoadTruncated:            "Section ends before all tables were read",
		LoadSizeMismatch:         "Byte accounting does not match the cursor",
		LoadStringTableTruncated: "String table is shorter than declared",
		LoadStringTableBug:       "String table count overflow was corrected",
		LoadFormat:               "Invalid record",
		LoadMissingData:          "Element has no data record",
		GraphInfo:                "Graph information",
		GraphParentCycle:         "Script inheritance cycle",
		GraphUnresolvedParent:    "Parent script not found",
		GraphUndefinedInstance:   "Instance of an undefined script or struct",
		GraphMemberMismatch:      "Variable count differs from the definition",
		GraphUnattached:          "Script instance is not attached to a reference",
		GraphTerminatedThread:    "Thread is terminated",
		GraphUndefinedThread:     "Thread runs an undefined script",
		WriteInfo:                "Write information",
		WriteRefused:             "Document cannot be written",
		ObsInfo:                  "Observability information",
		ObsTimings:               "Load timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 6000:
		return fmt.Sprintf("PAP%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
