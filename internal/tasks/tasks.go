package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeUsageRollupVerify = "usage:rollup:verify"
	TypeAPIKeyExpireSweep = "apikey:expire:sweep"
)

type UsageRollupVerifyPayload struct {
	// Day is the UTC day to rebuild; zero means yesterday.
	Day time.Time `json:"day,omitempty"`
}

type APIKeyExpireSweepPayload struct{}

func NewUsageRollupVerifyTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(UsageRollupVerifyPayload{})
	if err != nil {
		return nil, err
	}

	allOpts := append(opts, asynq.Unique(1*time.Hour))
	return asynq.NewTask(TypeUsageRollupVerify, payloadBytes, allOpts...), nil
}

func NewAPIKeyExpireSweepTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(APIKeyExpireSweepPayload{})
	if err != nil {
		return nil, err
	}

	allOpts := append(opts, asynq.Unique(1*time.Hour))
	return asynq.NewTask(TypeAPIKeyExpireSweep, payloadBytes, allOpts...), nil
}
