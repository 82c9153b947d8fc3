package config

type WorkerKeyStruct struct {
	PersistProctoringQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctoringQueue: "persist_proctoring_events_queue",
}
