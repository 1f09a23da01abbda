package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/govsense/internal/config"
)

func TestLoadAWSConfigEndpointOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "ap-southeast-3",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg.Region != "ap-southeast-3" {
		t.Fatalf("expected region ap-southeast-3, got %q", awsCfg.Region)
	}

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("expected static credentials, got %q", creds.AccessKeyID)
	}

	ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint(s3.ServiceID, cfg.AWSRegion)
	if err != nil {
		t.Fatalf("resolve s3 endpoint: %v", err)
	}
	if ep.URL != "http://localhost:4566" {
		t.Fatalf("unexpected s3 endpoint %q", ep.URL)
	}

	if _, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint("DynamoDB", cfg.AWSRegion); err == nil {
		t.Fatalf("expected other services to use default resolution")
	}
}
