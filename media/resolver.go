package media

import (
	"context"
	"fmt"
	"log"
)

// Resolver turns placement descriptions into hosted media URLs: images are
// generated then re-hosted on the target site, videos come from YouTube
// search. It satisfies the suggester's MediaResolver dependency.
type Resolver struct {
	images   *GetImgClient
	videos   *SerperClient
	uploader *WordPressUploader
}

// NewResolver wires the media pipeline together. uploader may be nil, in
// which case generated images are embedded by their source URL directly.
func NewResolver(images *GetImgClient, videos *SerperClient, uploader *WordPressUploader) *Resolver {
	return &Resolver{
		images:   images,
		videos:   videos,
		uploader: uploader,
	}
}

// ResolveImage generates an image for description and re-hosts it. When the
// upload fails the source URL is returned instead; a hot-linked image beats
// a dropped placement.
func (r *Resolver) ResolveImage(ctx context.Context, description string) (string, error) {
	if r.images == nil {
		return "", fmt.Errorf("image generation not configured")
	}

	srcURL, err := r.images.Generate(ctx, description)
	if err != nil {
		return "", err
	}

	if r.uploader == nil {
		return srcURL, nil
	}
	hosted, err := r.uploader.UploadFromURL(ctx, srcURL, description)
	if err != nil {
		log.Printf("re-hosting failed, falling back to source URL: %v", err)
		return srcURL, nil
	}
	return hosted, nil
}

// ResolveVideo searches for the best matching YouTube video.
func (r *Resolver) ResolveVideo(ctx context.Context, description string) (string, error) {
	if r.videos == nil {
		return "", fmt.Errorf("video search not configured")
	}

	videos, err := r.videos.SearchVideos(ctx, description)
	if err != nil {
		return "", err
	}
	if len(videos) == 0 || videos[0].Link == "" {
		return "", fmt.Errorf("no video found for %q", description)
	}
	return videos[0].Link, nil
}
