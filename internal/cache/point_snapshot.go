package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPointSnapshotTTL = 5 * time.Minute

// PointSnapshot 用户积分余额快照，流水追加后失效
type PointSnapshot struct {
	UID     string `json:"uid"`
	UserID  uint   `json:"user_id"`
	Point   int64  `json:"point"`
	Level   int    `json:"level"`
	Version int64  `json:"version"`
}

func pointSnapshotKey(uid string) string {
	return "points:balance:" + strings.TrimSpace(uid)
}

// GetPointSnapshot 获取积分快照
func GetPointSnapshot(ctx context.Context, uid string) (*PointSnapshot, bool, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, false, nil
	}
	var snapshot PointSnapshot
	hit, err := GetJSON(ctx, pointSnapshotKey(uid), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// 已缓存版本更新时拒绝写入，旧读者无法覆盖提交后写入的快照
var storePointSnapshotScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
  local ok, decoded = pcall(cjson.decode, current)
  if ok and type(decoded) == "table" then
    local cached = tonumber(decoded["version"])
    if cached and cached > tonumber(ARGV[2]) then
      return 0
    end
  end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// SetPointSnapshot 按版本号写入积分快照，返回是否写入（缓存中已有更新版本时为 false）
func SetPointSnapshot(ctx context.Context, snapshot *PointSnapshot, ttl time.Duration) (bool, error) {
	if !Enabled() || snapshot == nil || strings.TrimSpace(snapshot.UID) == "" {
		return false, nil
	}
	if ttl <= 0 {
		ttl = defaultPointSnapshotTTL
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return false, err
	}
	stored, err := storePointSnapshotScript.Run(ctx, redisClient, []string{BuildKey(pointSnapshotKey(snapshot.UID))}, payload, snapshot.Version, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// DelPointSnapshots 批量失效积分快照
func DelPointSnapshots(ctx context.Context, uids ...string) error {
	keys := make([]string, 0, len(uids))
	for _, uid := range uids {
		if strings.TrimSpace(uid) != "" {
			keys = append(keys, pointSnapshotKey(uid))
		}
	}
	return Del(ctx, keys...)
}
