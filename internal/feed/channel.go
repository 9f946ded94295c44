package feed

const channelPrefix = "markit:events:"

// Channel returns the pub/sub channel name for an owner's record type.
func Channel(ownerID string, t RecordType) string {
	return channelPrefix + ownerID + ":" + string(t)
}
