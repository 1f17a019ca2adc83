// Package params abstracts the centralized parameter store holding each
// environment's release pointer. The store is a plain last-write-wins
// register: concurrent writers race and the last write is what readers
// see. That is an accepted property of this tool, not something the
// provider should paper over with locking.
package params

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrParameterNotFound is returned when the named parameter has never
// been written. A fresh environment has no release pointer yet, so
// callers treat this as "nothing released", not a failure.
var ErrParameterNotFound = errors.New("parameter not found")

// Value is a parameter value plus the time it was last written.
type Value struct {
	S            string
	LastModified time.Time
}

// Store reads and writes named string parameters.
type Store interface {
	Get(ctx context.Context, name string) (Value, error)
	Put(ctx context.Context, name, value string) error
}

// SSMAPI is the subset of the SSM client used by the provider.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSMStore is the AWS Systems Manager Parameter Store provider.
type SSMStore struct {
	client SSMAPI
}

// NewSSM creates a provider backed by the given client.
func NewSSM(client SSMAPI) *SSMStore {
	return &SSMStore{client: client}
}

// NewSSMFromDefaults creates a provider using the default AWS credential chain.
func NewSSMFromDefaults(ctx context.Context) (*SSMStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("params: init: %w", err)
	}
	return &SSMStore{client: ssm.NewFromConfig(cfg)}, nil
}

// Get returns the current value of a parameter.
func (s *SSMStore) Get(ctx context.Context, name string) (Value, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return Value{}, fmt.Errorf("%s: %w", name, ErrParameterNotFound)
		}
		return Value{}, fmt.Errorf("params: get %s: %w", name, err)
	}
	return Value{
		S:            aws.ToString(out.Parameter.Value),
		LastModified: aws.ToTime(out.Parameter.LastModifiedDate),
	}, nil
}

// Put writes a parameter value, unconditionally overwriting any existing
// value. Retrying a failed Put is safe: the register is last-write-wins.
func (s *SSMStore) Put(ctx context.Context, name, value string) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("params: put %s: %w", name, err)
	}
	return nil
}
