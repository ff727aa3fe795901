package waapi

// Procedures.
const (
	ProcGetInfo         = "ak.wwise.core.getInfo"
	ProcGetProjectInfo  = "ak.wwise.core.getProjectInfo"
	ProcObjectGet       = "ak.wwise.core.object.get"
	ProcAudioImport     = "ak.wwise.core.audio.import"
	ProcPasteProperties = "ak.wwise.core.object.pasteProperties"
	ProcUndoBeginGroup  = "ak.wwise.core.undo.beginGroup"
	ProcUndoEndGroup    = "ak.wwise.core.undo.endGroup"
	ProcUndoCancelGroup = "ak.wwise.core.undo.cancelGroup"
	ProcCommandsExecute = "ak.wwise.ui.commands.execute"
)

// Topics.
const (
	TopicProjectLoaded     = "ak.wwise.core.project.loaded"
	TopicProjectPreClosed  = "ak.wwise.core.project.preClosed"
	TopicObjectCreated     = "ak.wwise.core.object.created"
	TopicObjectPostDeleted = "ak.wwise.core.object.postDeleted"
	TopicObjectNameChanged = "ak.wwise.core.object.nameChanged"
)

// Error URIs reported by Wwise that callers branch on.
const (
	ErrURIUnknownObject = "ak.wwise.query.unknown_object"
	ErrURIInvalidQuery  = "ak.wwise.invalid_query"
)
