package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionMonitorChannel returns the Redis PubSub channel name for a lesson session monitor
func (r *CacheKeyStruct) SessionMonitorChannel(sessionID string) string {
	return fmt.Sprintf("lesson:%s:monitor", sessionID)
}

// SessionConnectionKey returns the Redis key holding the token id of the one
// live stream connection of a lesson session
func (r *CacheKeyStruct) SessionConnectionKey(sessionID string) string {
	return fmt.Sprintf("lesson:%s:connection", sessionID)
}

var CacheKey = NewCacheKeyStruct()
