package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/internal/domain"
)

// PlatformResolver dispatches to a resolver per detected platform
type PlatformResolver struct {
	resolvers map[domain.Platform]domain.Resolver
}

// NewPlatformResolver creates an empty dispatcher
func NewPlatformResolver() *PlatformResolver {
	return &PlatformResolver{resolvers: make(map[domain.Platform]domain.Resolver)}
}

// Register installs the resolver for a platform
func (p *PlatformResolver) Register(platform domain.Platform, resolver domain.Resolver) {
	p.resolvers[platform] = resolver
}

// Platforms returns the registered platforms
func (p *PlatformResolver) Platforms() []domain.Platform {
	platforms := make([]domain.Platform, 0, len(p.resolvers))
	for platform := range p.resolvers {
		platforms = append(platforms, platform)
	}
	return platforms
}

func (p *PlatformResolver) resolverFor(sourceURL string) (domain.Resolver, error) {
	platform := domain.DetectPlatform(sourceURL)
	resolver, ok := p.resolvers[platform]
	if !ok {
		return nil, domain.NewTransferError(domain.KindInvalidSource, "dispatch",
			fmt.Errorf("unsupported source: %q", sourceURL))
	}
	return resolver, nil
}

func (p *PlatformResolver) Validate(sourceURL string) error {
	resolver, err := p.resolverFor(sourceURL)
	if err != nil {
		return err
	}
	return resolver.Validate(sourceURL)
}

func (p *PlatformResolver) Resolve(ctx context.Context, sourceURL string) (*domain.VideoInfo, error) {
	resolver, err := p.resolverFor(sourceURL)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, sourceURL)
}

func (p *PlatformResolver) Open(ctx context.Context, info *domain.VideoInfo, enc domain.Encoding) (*domain.Stream, error) {
	resolver, err := p.resolverFor(info.SourceURL)
	if err != nil {
		return nil, err
	}
	return resolver.Open(ctx, info, enc)
}

// NewResolver builds the resolver chain for the given configuration.
// Direct file URLs are only accepted when AllowDirect is set.
func NewResolver(config *domain.ResolverConfig, logger *zap.Logger) *PlatformResolver {
	p := NewPlatformResolver()
	p.Register(domain.PlatformYouTube, NewYouTubeResolver(config, logger))
	if config.AllowDirect {
		p.Register(domain.PlatformDirect, NewDirectResolver(config, logger))
	}
	return p
}
