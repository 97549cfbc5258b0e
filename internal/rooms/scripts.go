package rooms

import "github.com/go-redis/redis/v8"

const (
	joinOK       = 1
	joinNotFound = -1
	joinStarted  = -2
	joinFull     = -3
	joinCorrupt  = -4
)

// joinScript admits a player only if the code still points at the room, the
// room is in the lobby and a seat is free. The check and the write run as one
// step on the server so racing joiners cannot overfill a room.
//
// KEYS: join index, room hash, players hash
// ARGV: room id, player id, player JSON, ttl seconds
var joinScript = redis.NewScript(`
local roomId = redis.call("GET", KEYS[1])
if not roomId or roomId ~= ARGV[1] then
  return -1
end

local status = redis.call("HGET", KEYS[2], "status")
if not status then
  return -1
end
if status ~= "LOBBY" then
  return -2
end

local limit = tonumber(redis.call("HGET", KEYS[2], "playerLimit"))
if not limit then
  return -4
end
if redis.call("HLEN", KEYS[3]) >= limit then
  return -3
end

local ttl = tonumber(ARGV[4])
redis.call("HSET", KEYS[3], ARGV[2], ARGV[3])
redis.call("EXPIRE", KEYS[1], ttl)
redis.call("EXPIRE", KEYS[2], ttl)
redis.call("EXPIRE", KEYS[3], ttl)
return 1
`)
