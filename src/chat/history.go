package chat

import "github.com/shanev77/crosschat/src/aisdk"

// Unbounded disables history trimming entirely.
const Unbounded = -1

// Trim bounds a message log to the system entry plus the most recent
// keepPairs prompt/reply pairs. keepPairs == Unbounded returns the log
// unchanged; keepPairs == 0 drops all history but the system entry.
// Trim is pure and idempotent.
func Trim(log []*aisdk.Message, keepPairs int) []*aisdk.Message {
	if keepPairs == Unbounded {
		return log
	}
	if len(log) == 0 {
		return log
	}
	if keepPairs <= 0 {
		return log[:1]
	}

	tail := log[1:]
	if len(tail) <= 2*keepPairs {
		return log
	}

	trimmed := make([]*aisdk.Message, 0, 1+2*keepPairs)
	trimmed = append(trimmed, log[0])
	trimmed = append(trimmed, tail[len(tail)-2*keepPairs:]...)
	return trimmed
}
