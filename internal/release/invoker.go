package release

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// LambdaAPI is the subset of the Lambda client used for delegated
// activation.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker performs delegated activation by invoking a function
// with the parameter name/value payload.
type LambdaInvoker struct {
	client LambdaAPI
}

// NewLambdaInvoker creates an invoker backed by the given client.
func NewLambdaInvoker(client LambdaAPI) *LambdaInvoker {
	return &LambdaInvoker{client: client}
}

// NewLambdaInvokerFromDefaults creates an invoker using the default AWS
// credential chain.
func NewLambdaInvokerFromDefaults(ctx context.Context) (*LambdaInvoker, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("invoker: init: %w", err)
	}
	return &LambdaInvoker{client: lambda.NewFromConfig(cfg)}, nil
}

// Invoke calls the function synchronously. A transport error, a non-2xx
// status, and a function-level error response all fail the activation;
// the caller must not announce success in any of those cases.
func (l *LambdaInvoker) Invoke(ctx context.Context, function string, payload []byte) error {
	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(function),
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", function, err)
	}

	if out.StatusCode < 200 || out.StatusCode > 299 {
		return fmt.Errorf("invoke %s: status %d", function, out.StatusCode)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("invoke %s: function error %s: %s",
			function, aws.ToString(out.FunctionError), string(out.Payload))
	}
	return nil
}
