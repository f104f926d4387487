package config

const (
	// TopicCollectionResult carries one message per synced collection.
	TopicCollectionResult = "sync.collection.result"

	// TopicRunResult carries the summary of a whole sync run.
	TopicRunResult = "sync.run.result"
)
