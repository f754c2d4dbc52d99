package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/graffiticode/graffiticode/engine/core"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "gc"

// upsertScript resolves the code hash pointer and writes the task atomically.
// The task hash is written before the pointer. Task keys are derived inside
// the script, so every key shares the repository hash tag and lands in one
// cluster slot.
//
// KEYS[1] pointer key
// ARGV: new id, task key prefix, lang, code, code hash, uid ("" = anonymous), has mark, mark
var upsertScript = goredis.NewScript(`
local existing = redis.call('GET', KEYS[1])
local uid = ARGV[6]
if existing then
  local key = ARGV[2] .. existing
  if redis.call('EXISTS', key) == 0 then
    return redis.error_reply('code hash points at missing task ' .. existing)
  end
  redis.call('HINCRBY', key, 'count', 1)
  if uid == '' then
    redis.call('HSET', key, 'public', '1')
  else
    redis.call('SADD', key .. ':uids', uid)
  end
  if ARGV[7] == '1' then
    redis.call('HSET', key, 'mark', ARGV[8])
  end
  return {existing, 0}
end
local key = ARGV[2] .. ARGV[1]
local public = '0'
if uid == '' then
  public = '1'
end
redis.call('HSET', key, 'lang', ARGV[3], 'code', ARGV[4], 'codeHash', ARGV[5], 'count', '1', 'public', public)
if ARGV[7] == '1' then
  redis.call('HSET', key, 'mark', ARGV[8])
end
if uid ~= '' then
  redis.call('SADD', key .. ':uids', uid)
end
redis.call('SET', KEYS[1], ARGV[1])
return {ARGV[1], 1}
`)

// TaskRepo implements task.Repository on Redis.
//
// Layout: {<prefix>}:task:<id> is a hash of lang, code, codeHash, count,
// public and mark; {<prefix>}:task:<id>:uids is the set of granted uids;
// {<prefix>}:hash:<codeHash> points at the task id. The braces are a Redis
// Cluster hash tag.
type TaskRepo struct {
	client goredis.UniversalClient
	prefix string
	ping   func(ctx context.Context) error
	close  func(ctx context.Context) error
}

var _ task.Repository = (*TaskRepo)(nil)

// NewTaskRepo returns a repository using client. The caller keeps ownership of client.
func NewTaskRepo(client goredis.UniversalClient, prefix string) *TaskRepo {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &TaskRepo{client: client, prefix: prefix}
}

// OpenRepository connects to Redis and returns a repository that owns the connection.
func OpenRepository(ctx context.Context, cfg *Config) (*TaskRepo, error) {
	c, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := NewTaskRepo(c.Redis(), cfg.Prefix)
	repo.ping = c.HealthCheck
	repo.close = c.Close
	return repo, nil
}

func (r *TaskRepo) keyspace() string {
	return "{" + r.prefix + "}"
}

func (r *TaskRepo) taskKeyPrefix() string {
	return r.keyspace() + ":task:"
}

func (r *TaskRepo) taskKey(id string) string {
	return r.taskKeyPrefix() + id
}

func (r *TaskRepo) uidsKey(id string) string {
	return r.taskKey(id) + ":uids"
}

func (r *TaskRepo) hashKey(codeHash string) string {
	return r.keyspace() + ":hash:" + codeHash
}

// Upsert runs the upsert script.
func (r *TaskRepo) Upsert(ctx context.Context, in *task.UpsertInput) (string, bool, error) {
	code, err := core.MarshalJSONValue(in.Code)
	if err != nil {
		return "", false, fmt.Errorf("redis: marshal code: %w", err)
	}
	uid := ""
	if in.Auth != nil {
		uid = in.Auth.UID
	}
	hasMark, mark := "0", ""
	if in.Mark != nil {
		b, err := core.MarshalJSONValue(in.Mark)
		if err != nil {
			return "", false, fmt.Errorf("redis: marshal mark: %w", err)
		}
		hasMark, mark = "1", string(b)
	}
	res, err := upsertScript.Run(
		ctx,
		r.client,
		[]string{r.hashKey(in.CodeHash)},
		in.NewID, r.taskKeyPrefix(), in.Lang, string(code), in.CodeHash, uid, hasMark, mark,
	).Slice()
	if err != nil {
		return "", false, fmt.Errorf("redis: upsert task: %w", err)
	}
	if len(res) != 2 {
		return "", false, fmt.Errorf("redis: unexpected upsert reply %v", res)
	}
	taskID, ok := res[0].(string)
	if !ok {
		return "", false, fmt.Errorf("redis: unexpected task id %T", res[0])
	}
	created, _ := res[1].(int64)
	logger.FromContext(ctx).Debug("Task upserted", "store_driver", "redis", "task_id", taskID, "created", created == 1)
	return taskID, created == 1, nil
}

// Get reads the task hash and its uid set in one pipeline.
func (r *TaskRepo) Get(ctx context.Context, taskID string) (*task.Record, error) {
	var (
		fields *goredis.MapStringStringCmd
		uids   *goredis.StringSliceCmd
	)
	_, err := r.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		fields = p.HGetAll(ctx, r.taskKey(taskID))
		uids = p.SMembers(ctx, r.uidsKey(taskID))
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis: get task: %w", err)
	}
	values := fields.Val()
	if len(values) == 0 {
		return nil, task.ErrNotFound
	}
	return toRecord(taskID, values, uids.Val())
}

func toRecord(id string, values map[string]string, uids []string) (*task.Record, error) {
	code, err := core.UnmarshalJSONValue([]byte(values["code"]))
	if err != nil {
		return nil, fmt.Errorf("redis: decode code: %w", err)
	}
	var mark any
	if raw, ok := values["mark"]; ok {
		if mark, err = core.UnmarshalJSONValue([]byte(raw)); err != nil {
			return nil, fmt.Errorf("redis: decode mark: %w", err)
		}
	}
	count, err := strconv.ParseInt(values["count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: decode count: %w", err)
	}
	acl := &task.ACL{Public: values["public"] == "1", UIDs: make(map[string]bool, len(uids))}
	for _, uid := range uids {
		acl.UIDs[uid] = true
	}
	return &task.Record{
		ID:       id,
		Lang:     values["lang"],
		Code:     code,
		CodeHash: values["codeHash"],
		Count:    count,
		ACL:      acl,
		Mark:     mark,
	}, nil
}

// Ping checks that the server answers.
func (r *TaskRepo) Ping(ctx context.Context) error {
	if r.ping != nil {
		return r.ping(ctx)
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the connection when the repository owns it.
func (r *TaskRepo) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}
