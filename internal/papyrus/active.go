package papyrus

import (
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/eid"
	"papyrus/internal/game"
)

// FragmentType identifies the payload of a fragment task.
type FragmentType uint8

const (
	FragQuestStage FragmentType = iota
	FragScenePhaseResults
	FragSceneActionResults
	FragSceneResults
	FragTopicInfo
	FragTerminalRunResults
)

func (t FragmentType) String() string {
	switch t {
	case FragQuestStage:
		return "QuestStage"
	case FragScenePhaseResults:
		return "ScenePhaseResults"
	case FragSceneActionResults:
		return "SceneActionResults"
	case FragSceneResults:
		return "SceneResults"
	case FragTopicInfo:
		return "TopicInfo"
	case FragTerminalRunResults:
		return "TerminalRunResults"
	default:
		return fmt.Sprintf("FragmentType(%d)", uint8(t))
	}
}

// FragmentTask is the pending quest, scene, topic or terminal fragment that
// started a thread.
type FragmentTask struct {
	Type FragmentType
	// Form is the quest, scene, topic info or terminal form id.
	Form uint32
	// Stage is the quest stage.
	Stage uint16
	// Sub is the scene phase or action.
	Sub uint32
	// Flags is the quest stage flag byte or the terminal's unknown byte.
	Flags uint8
	// Value is the topic info variable.
	Value *Variable
}

func readFragmentTask(r *binio.Reader, ctx *Context) (*FragmentTask, error) {
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	ft := &FragmentTask{Type: FragmentType(tag)}
	if ft.Form, err = r.U32(); err != nil {
		return ft, err
	}
	switch ft.Type {
	case FragQuestStage:
		if ft.Stage, err = r.U16(); err != nil {
			return ft, err
		}
		ft.Flags, err = r.U8()
	case FragScenePhaseResults, FragSceneActionResults:
		ft.Sub, err = r.U32()
	case FragSceneResults:
	case FragTopicInfo:
		ft.Value, err = ReadVariable(r, ctx)
	case FragTerminalRunResults:
		ft.Flags, err = r.U8()
	default:
		return ft, &FormatError{Offset: r.Pos() - 5, Msg: fmt.Sprintf("invalid fragment task type %d", tag)}
	}
	return ft, err
}

func (ft *FragmentTask) Size() int {
	size := 1 + 4
	switch ft.Type {
	case FragQuestStage:
		size += 2 + 1
	case FragScenePhaseResults, FragSceneActionResults:
		size += 4
	case FragTopicInfo:
		size += ft.Value.Size()
	case FragTerminalRunResults:
		size++
	}
	return size
}

func (ft *FragmentTask) Write(w *binio.Writer) error {
	w.PutU8(uint8(ft.Type))
	w.PutU32(ft.Form)
	switch ft.Type {
	case FragQuestStage:
		w.PutU16(ft.Stage)
		w.PutU8(ft.Flags)
	case FragScenePhaseResults, FragSceneActionResults:
		w.PutU32(ft.Sub)
	case FragTopicInfo:
		return ft.Value.Write(w)
	case FragTerminalRunResults:
		w.PutU8(ft.Flags)
	}
	return nil
}

// ActiveScriptData is the second-pass record of a thread.
type ActiveScriptData struct {
	Major       uint8
	Minor       uint8
	Unknown     *Variable
	Flag        uint8
	UnknownByte uint8
	Unknown2    uint32
	Unknown3    uint8
	Fragment    *FragmentTask
	Frames      []*StackFrame

	attachedID *eid.EID
	attached   Node
}

func readActiveScriptData(r *binio.Reader, ctx *Context, id *eid.EID) (*ActiveScriptData, error) {
	d := &ActiveScriptData{}
	var err error
	if d.Major, err = r.U8(); err != nil {
		return d, err
	}
	if d.Major < 1 || d.Major > 2 {
		return d, &FormatError{Offset: r.Pos() - 1, Msg: fmt.Sprintf("unsupported thread version %d", d.Major)}
	}
	if d.Minor, err = r.U8(); err != nil {
		return d, err
	}
	if d.Unknown, err = ReadVariable(r, ctx); err != nil {
		return d, err
	}
	if d.Flag, err = r.U8(); err != nil {
		return d, err
	}
	if d.UnknownByte, err = r.U8(); err != nil {
		return d, err
	}
	if d.hasUnknown2() {
		if d.Unknown2, err = r.U32(); err != nil {
			return d, err
		}
	}
	if d.hasUnknown3() {
		if d.Unknown3, err = r.U8(); err != nil {
			return d, err
		}
		if d.Unknown3 == 2 {
			if d.Fragment, err = readFragmentTask(r, ctx); err != nil {
				return d, err
			}
		}
	}
	if d.expectsAttachment(ctx.Variant) {
		if d.attachedID, err = ctx.readID(r); err != nil {
			return d, err
		}
		d.attached = ctx.findReferent(d.attachedID)
	}
	count, err := r.Count32()
	if err != nil {
		return d, err
	}
	d.Frames, err = readList(r, "stack frame", count, func() (*StackFrame, error) { return ReadStackFrame(r, ctx, id) })
	return d, err
}

func (d *ActiveScriptData) hasUnknown2() bool { return d.Flag&0x01 != 0 }
func (d *ActiveScriptData) hasUnknown3() bool { return d.Flag != 0 }

// expectsAttachment mirrors the engine: Fallout 4 threads carry an attachment
// id unless they run a terminal fragment.
func (d *ActiveScriptData) expectsAttachment(v game.Variant) bool {
	return v.HasAttachment() && (d.Fragment == nil || d.Fragment.Type != FragTerminalRunResults)
}

// AttachedID returns the attachment id, or nil when the record has none.
func (d *ActiveScriptData) AttachedID() *eid.EID { return d.attachedID }

// Attached returns the node the attachment id resolves to.
func (d *ActiveScriptData) Attached() Node { return d.attached }

func (d *ActiveScriptData) relink(res Resolver) {
	d.Unknown.Relink(res)
	if d.Fragment != nil && d.Fragment.Value != nil {
		d.Fragment.Value.Relink(res)
	}
	d.attached = nil
	if res != nil && !d.attachedID.IsZero() {
		d.attached = res.FindReferent(d.attachedID)
	}
	for _, f := range d.Frames {
		f.relink(res)
	}
}

func (d *ActiveScriptData) Size() int {
	size := 1 + 1 + d.Unknown.Size() + 1 + 1
	if d.hasUnknown2() {
		size += 4
	}
	if d.hasUnknown3() {
		size++
		if d.Fragment != nil {
			size += d.Fragment.Size()
		}
	}
	if d.attachedID != nil {
		size += d.attachedID.Width()
	}
	size += 4
	for _, f := range d.Frames {
		size += f.Size()
	}
	return size
}

func (d *ActiveScriptData) Write(w *binio.Writer) error {
	w.PutU8(d.Major)
	w.PutU8(d.Minor)
	if err := d.Unknown.Write(w); err != nil {
		return err
	}
	w.PutU8(d.Flag)
	w.PutU8(d.UnknownByte)
	if d.hasUnknown2() {
		w.PutU32(d.Unknown2)
	}
	if d.hasUnknown3() {
		w.PutU8(d.Unknown3)
		if d.Fragment != nil {
			if err := d.Fragment.Write(w); err != nil {
				return err
			}
		}
	}
	if d.attachedID != nil {
		d.attachedID.Write(w)
	}
	if err := w.PutLen32(len(d.Frames)); err != nil {
		return err
	}
	for _, f := range d.Frames {
		if err := f.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// ActiveScript is a thread: an identifier, a type byte and, after the data
// pass, its call stack.
type ActiveScript struct {
	id   *eid.EID
	Type uint8

	data      *ActiveScriptData
	suspended *SuspendedStack
	instance  Node
}

// ReadActiveScript decodes the identity record of a thread.
func ReadActiveScript(r *binio.Reader, ctx *Context) (*ActiveScript, error) {
	a := &ActiveScript{}
	var err error
	if a.id, err = ctx.readID(r); err != nil {
		return a, err
	}
	a.Type, err = r.U8()
	return a, err
}

func (a *ActiveScript) Kind() Kind              { return KindActiveScript }
func (a *ActiveScript) ID() *eid.EID            { return a.id }
func (a *ActiveScript) Data() *ActiveScriptData { return a.data }

// Frames returns the call stack, top frame first.
func (a *ActiveScript) Frames() []*StackFrame {
	if a.data == nil {
		return nil
	}
	return a.data.Frames
}

// Suspended returns the suspended stack sharing this thread's id.
func (a *ActiveScript) Suspended() *SuspendedStack { return a.suspended }

// IsSuspended reports whether a suspended stack with the same id exists.
func (a *ActiveScript) IsSuspended() bool { return a.suspended != nil }

// Instance returns the node owning the thread: the referent of the top
// frame's owner variable.
func (a *ActiveScript) Instance() Node { return a.instance }

// Attached returns the node the attachment id resolves to.
func (a *ActiveScript) Attached() Node {
	if a.data == nil {
		return nil
	}
	return a.data.attached
}

// IsTerminated reports a thread that has frames, is not suspended, and whose
// top frame is a zeroed non-native function.
func (a *ActiveScript) IsTerminated() bool {
	frames := a.Frames()
	if len(frames) == 0 || a.IsSuspended() {
		return false
	}
	top := frames[0]
	return !top.IsNative() && top.IsZeroed()
}

// IsUndefined reports whether any frame runs a missing or undefined script.
func (a *ActiveScript) IsUndefined() bool {
	for _, f := range a.Frames() {
		if f.IsUndefined() {
			return true
		}
	}
	return false
}

// IsZeroed reports whether every frame is zeroed.
func (a *ActiveScript) IsZeroed() bool {
	for _, f := range a.Frames() {
		if !f.IsZeroed() {
			return false
		}
	}
	return true
}

// Zero neutralises the thread by zeroing every frame.
func (a *ActiveScript) Zero() {
	for _, f := range a.Frames() {
		f.Zero()
	}
}

func (a *ActiveScript) link(suspended map[*eid.EID]*SuspendedStack) {
	a.suspended = suspended[a.id]
	a.instance = nil
	if frames := a.Frames(); len(frames) > 0 && frames[0].Owner != nil {
		a.instance = frames[0].Owner.Referent()
	}
}

func (a *ActiveScript) Size() int { return a.id.Width() + 1 }

func (a *ActiveScript) Write(w *binio.Writer) error {
	a.id.Write(w)
	w.PutU8(a.Type)
	return nil
}

func (a *ActiveScript) String() string {
	frames := a.Frames()
	if len(frames) == 0 {
		return fmt.Sprintf("thread [%s] (no frames)", a.id)
	}
	return fmt.Sprintf("thread [%s] %s", a.id, frames[0])
}
