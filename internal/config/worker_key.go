package config

type WorkerKeyStruct struct {
	PublishTransitionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PublishTransitionsQueue: "publish_transitions_queue",
}
