package cache

import (
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix = "labbook:profile:%d"
	PostKeyPrefix    = "labbook:post:%d"
	CountsKeyPrefix  = "labbook:post:%d:counts"
	LatestPostKey    = "labbook:feed:latest"
)

const (
	ProfileTTL    = 5 * time.Minute
	PostTTL       = 30 * time.Minute
	CountsTTL     = 10 * time.Minute
	LatestPostTTL = 15 * time.Second
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func CountsKey(postID uint) string {
	return fmt.Sprintf(CountsKeyPrefix, postID)
}
