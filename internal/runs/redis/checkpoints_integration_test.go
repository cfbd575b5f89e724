//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	checkpointredis "mailmove/internal/runs/redis"
	"mailmove/pkg/testutil/containers"
)

type CheckpointsSuite struct {
	suite.Suite
	redis       *containers.RedisContainer
	checkpoints *checkpointredis.Checkpoints
}

func TestCheckpointsSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CheckpointsSuite))
}

func (s *CheckpointsSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.checkpoints = checkpointredis.New(s.redis.Client)
}

func (s *CheckpointsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *CheckpointsSuite) TestMarkAndSeen() {
	ctx := context.Background()

	seen, err := s.checkpoints.Seen(ctx, "run-1", "ana@old.example.com")
	s.Require().NoError(err)
	s.False(seen)

	s.Require().NoError(s.checkpoints.Mark(ctx, "run-1", "ana@old.example.com"))

	seen, err = s.checkpoints.Seen(ctx, "run-1", "ana@old.example.com")
	s.Require().NoError(err)
	s.True(seen)
}

func (s *CheckpointsSuite) TestRunsAreIsolated() {
	ctx := context.Background()

	s.Require().NoError(s.checkpoints.Mark(ctx, "run-1", "ana@old.example.com"))

	seen, err := s.checkpoints.Seen(ctx, "run-2", "ana@old.example.com")
	s.Require().NoError(err)
	s.False(seen, "a marker belongs to exactly one run")
}

func (s *CheckpointsSuite) TestMarkersExpire() {
	ctx := context.Background()
	short := checkpointredis.New(s.redis.Client, checkpointredis.WithTTL(time.Second))

	s.Require().NoError(short.Mark(ctx, "run-ttl", "ana@old.example.com"))

	s.Require().Eventually(func() bool {
		seen, err := short.Seen(ctx, "run-ttl", "ana@old.example.com")
		return err == nil && !seen
	}, 5*time.Second, 200*time.Millisecond)
}
