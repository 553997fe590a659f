package emit

// Allocation tracking implements §5's per-function allocation tracker: a
// fixed-capacity array of i8* populated at every allocating site (array
// literals, zeros, to_str* buffers, concatenation results, struct
// constructors) and bulk-freed in a loop immediately before the function's
// terminator. This is deliberately the source's simpler bulk-free design,
// not the arena redesign §9 suggests — kept as specified per DESIGN.md's
// decided Open Question.
const allocTrackerCapacity = 256

// beginAllocTracker allocates the tracker array and count slot for the
// function currently being lowered and records their names on e so
// trackAlloc/emitFreeEpilogue can find them.
func (e *Emitter) beginAllocTracker() {
	e.allocName = e.newTemp()
	e.allocCap = e.newTemp()
	e.writeLine("%s = alloca [%d x i8*]", e.allocName, allocTrackerCapacity)
	e.writeLine("%s = alloca i64", e.allocCap)
	e.writeLine("store i64 0, i64* %s", e.allocCap)
}

// trackAlloc records ptrReg (an i8* value) in the current function's
// allocation tracker so it is freed at function exit.
func (e *Emitter) trackAlloc(ptrReg string) {
	idx := e.newTemp()
	e.writeLine("%s = load i64, i64* %s", idx, e.allocCap)
	slot := e.newTemp()
	e.writeLine("%s = getelementptr [%d x i8*], [%d x i8*]* %s, i64 0, i64 %s",
		slot, allocTrackerCapacity, allocTrackerCapacity, e.allocName, idx)
	e.writeLine("store i8* %s, i8** %s", ptrReg, slot)
	next := e.newTemp()
	e.writeLine("%s = add i64 %s, 1", next, idx)
	e.writeLine("store i64 %s, i64* %s", next, e.allocCap)
}

// emitFreeEpilogue emits the bulk-free loop that walks the tracker from 0
// to its current count and frees each pointer, run immediately before the
// function's terminator per §5.
func (e *Emitter) emitFreeEpilogue() {
	count := e.newTemp()
	e.writeLine("%s = load i64, i64* %s", count, e.allocCap)

	idxSlot := e.newTemp()
	e.writeLine("%s = alloca i64", idxSlot)
	e.writeLine("store i64 0, i64* %s", idxSlot)

	condLbl := e.newLabel("free.cond")
	bodyLbl := e.newLabel("free.body")
	endLbl := e.newLabel("free.end")

	e.writeLine("br label %%%s", condLbl)
	e.writeLabel(condLbl)
	idx := e.newTemp()
	e.writeLine("%s = load i64, i64* %s", idx, idxSlot)
	cond := e.newTemp()
	e.writeLine("%s = icmp slt i64 %s, %s", cond, idx, count)
	e.writeLine("br i1 %s, label %%%s, label %%%s", cond, bodyLbl, endLbl)

	e.writeLabel(bodyLbl)
	slot := e.newTemp()
	e.writeLine("%s = getelementptr [%d x i8*], [%d x i8*]* %s, i64 0, i64 %s",
		slot, allocTrackerCapacity, allocTrackerCapacity, e.allocName, idx)
	ptr := e.newTemp()
	e.writeLine("%s = load i8*, i8** %s", ptr, slot)
	e.writeLine("call void @free(i8* %s)", ptr)
	next := e.newTemp()
	e.writeLine("%s = add i64 %s, 1", next, idx)
	e.writeLine("store i64 %s, i64* %s", next, idxSlot)
	e.writeLine("br label %%%s", condLbl)

	e.writeLabel(endLbl)
}
