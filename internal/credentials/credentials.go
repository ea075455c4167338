// Package credentials resolves named connections to object-storage
// credentials using the AWS SDK.
//
// A connection is one of:
//
//	static       access key pair (and optional session token) from config
//	profile      a named profile from the shared AWS config files
//	default      the SDK default chain (env, shared files, IMDS, ...)
//	assume_role  STS AssumeRole on top of static keys or the default chain
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/leapstack-labs/leapetl/pkg/core"
)

// Connection types.
const (
	TypeStatic     = "static"
	TypeProfile    = "profile"
	TypeDefault    = "default"
	TypeAssumeRole = "assume_role"
)

// DefaultSessionName is used for AssumeRole when none is configured.
const DefaultSessionName = "leapetl"

// ErrUnknownConnection is returned for a connection id missing from config.
var ErrUnknownConnection = errors.New("connection not defined")

// Connection configures one named credential source.
type Connection struct {
	Type            string `mapstructure:"type" yaml:"type,omitempty" validate:"omitempty,oneof=static profile default assume_role"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
	SessionToken    string `mapstructure:"session_token" yaml:"session_token,omitempty"`
	Profile         string `mapstructure:"profile" yaml:"profile,omitempty"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	RoleARN         string `mapstructure:"role_arn" yaml:"role_arn,omitempty" validate:"required_if=Type assume_role"`
	ExternalID      string `mapstructure:"external_id" yaml:"external_id,omitempty"`
	SessionName     string `mapstructure:"session_name" yaml:"session_name,omitempty"`
}

// EffectiveType returns the configured type, inferring static when keys
// are present and default otherwise.
func (c Connection) EffectiveType() string {
	switch {
	case c.Type != "":
		return c.Type
	case c.AccessKeyID != "":
		return TypeStatic
	default:
		return TypeDefault
	}
}

// LoadConfigFunc loads an aws.Config. It matches config.LoadDefaultConfig.
type LoadConfigFunc func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)

// AssumeRoleFunc builds the credentials provider for an assume_role connection.
type AssumeRoleFunc func(cfg aws.Config, conn Connection) aws.CredentialsProvider

// Provider resolves connection ids to credentials. Providers are built once
// per connection and cached; the SDK refreshes expiring credentials.
type Provider struct {
	conns  map[string]Connection
	logger *slog.Logger

	loadConfig LoadConfigFunc
	assumeRole AssumeRoleFunc

	mu        sync.Mutex
	providers map[string]aws.CredentialsProvider
}

// Option configures a Provider.
type Option func(*Provider)

// WithLoadConfig replaces config.LoadDefaultConfig.
func WithLoadConfig(fn LoadConfigFunc) Option {
	return func(p *Provider) { p.loadConfig = fn }
}

// WithAssumeRole replaces the STS AssumeRole provider.
func WithAssumeRole(fn AssumeRoleFunc) Option {
	return func(p *Provider) { p.assumeRole = fn }
}

// NewProvider creates a Provider over the configured connections.
func NewProvider(conns map[string]Connection, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Provider{
		conns:      conns,
		logger:     logger,
		loadConfig: config.LoadDefaultConfig,
		assumeRole: stsAssumeRole,
		providers:  make(map[string]aws.CredentialsProvider),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve implements operators.CredentialResolver.
func (p *Provider) Resolve(ctx context.Context, id string) (core.Credentials, error) {
	prov, err := p.provider(ctx, id)
	if err != nil {
		return core.Credentials{}, err
	}

	v, err := prov.Retrieve(ctx)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("retrieve credentials for %s: %w", id, err)
	}

	p.logger.Debug("resolved credentials",
		slog.String("connection", id),
		slog.String("source", v.Source),
		slog.Bool("session", v.SessionToken != ""))

	return core.Credentials{
		AccessKeyID:     v.AccessKeyID,
		SecretAccessKey: v.SecretAccessKey,
		SessionToken:    v.SessionToken,
	}, nil
}

func (p *Provider) provider(ctx context.Context, id string) (aws.CredentialsProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prov, ok := p.providers[id]; ok {
		return prov, nil
	}

	conn, ok := p.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, id)
	}

	prov, err := p.build(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", id, err)
	}
	p.providers[id] = prov
	return prov, nil
}

func (p *Provider) build(ctx context.Context, conn Connection) (aws.CredentialsProvider, error) {
	static := func() aws.CredentialsProvider {
		return awscreds.NewStaticCredentialsProvider(conn.AccessKeyID, conn.SecretAccessKey, conn.SessionToken)
	}

	switch conn.EffectiveType() {
	case TypeStatic:
		if conn.AccessKeyID == "" || conn.SecretAccessKey == "" {
			return nil, errors.New("static credentials need access_key_id and secret_access_key")
		}
		return static(), nil

	case TypeProfile, TypeDefault:
		cfg, err := p.load(ctx, conn, nil)
		if err != nil {
			return nil, err
		}
		if cfg.Credentials == nil {
			return nil, errors.New("no credentials found in the default chain")
		}
		return cfg.Credentials, nil

	case TypeAssumeRole:
		if conn.RoleARN == "" {
			return nil, errors.New("assume_role needs role_arn")
		}
		var base aws.CredentialsProvider
		if conn.AccessKeyID != "" {
			base = static()
		}
		cfg, err := p.load(ctx, conn, base)
		if err != nil {
			return nil, err
		}
		return aws.NewCredentialsCache(p.assumeRole(cfg, conn)), nil

	default:
		return nil, fmt.Errorf("unknown connection type %q", conn.Type)
	}
}

func (p *Provider) load(ctx context.Context, conn Connection, base aws.CredentialsProvider) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if conn.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(conn.Profile))
	}
	if conn.Region != "" {
		opts = append(opts, config.WithRegion(conn.Region))
	}
	if base != nil {
		opts = append(opts, config.WithCredentialsProvider(base))
	}

	cfg, err := p.loadConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

func stsAssumeRole(cfg aws.Config, conn Connection) aws.CredentialsProvider {
	return stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), conn.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = conn.SessionName
		if o.RoleSessionName == "" {
			o.RoleSessionName = DefaultSessionName
		}
		if conn.ExternalID != "" {
			o.ExternalID = aws.String(conn.ExternalID)
		}
	})
}
