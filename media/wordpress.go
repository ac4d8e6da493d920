package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	// Registered for dimension sniffing of downloaded images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"github.com/ruckquest/augmenter/slug"
)

const (
	// maxImageBytes caps downloads so a misbehaving generation service
	// cannot exhaust memory.
	maxImageBytes = 20 << 20

	// minImageWidth rejects thumbnails and tracking pixels.
	minImageWidth = 200
)

// WordPressUploader re-hosts images on a WordPress site through its REST
// media endpoint, so published articles never hot-link a generation
// service's expiring URLs.
type WordPressUploader struct {
	baseURL    string
	username   string
	appPass    string
	httpClient *http.Client
}

// NewWordPressUploader creates an uploader for the site at baseURL, using
// application-password basic auth. httpClient may be nil.
func NewWordPressUploader(baseURL, username, appPass string, httpClient *http.Client) *WordPressUploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &WordPressUploader{
		baseURL:    baseURL,
		username:   username,
		appPass:    appPass,
		httpClient: httpClient,
	}
}

type mediaResponse struct {
	GUID struct {
		Rendered string `json:"rendered"`
	} `json:"guid"`
	SourceURL string `json:"source_url"`
}

// UploadFromURL downloads the image at srcURL, validates it, and uploads it
// to the site's media library with altText. It returns the hosted URL.
func (u *WordPressUploader) UploadFromURL(ctx context.Context, srcURL, altText string) (string, error) {
	data, err := u.download(ctx, srcURL)
	if err != nil {
		return "", err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unrecognized image data from %s: %w", srcURL, err)
	}
	if cfg.Width < minImageWidth {
		return "", fmt.Errorf("image from %s is %dpx wide, below minimum %d", srcURL, cfg.Width, minImageWidth)
	}

	caption := altText
	if artist := exifArtist(data); artist != "" {
		caption = fmt.Sprintf("%s (photo: %s)", altText, artist)
	}

	name := slug.GenerateWithFallback(altText, "image")
	filename := fmt.Sprintf("%s-%d.%s", name, time.Now().UnixMilli(), extensionFor(format))

	return u.upload(ctx, filename, format, data, altText, caption)
}

func (u *WordPressUploader) download(ctx context.Context, srcURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", srcURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: status %d", srcURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image from %s exceeds %d byte cap", srcURL, maxImageBytes)
	}
	return data, nil
}

func (u *WordPressUploader) upload(ctx context.Context, filename, format string, data []byte, altText, caption string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	mw.WriteField("alt_text", altText)
	mw.WriteField("caption", caption)
	mw.WriteField("title", slug.GenerateWithFallback(altText, "image"))
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}

	endpoint := u.baseURL + "/wp-json/wp/v2/media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.SetBasicAuth(u.username, u.appPass)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed: status %d: %s", resp.StatusCode, msg)
	}

	var mr mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if mr.GUID.Rendered != "" {
		return mr.GUID.Rendered, nil
	}
	if mr.SourceURL != "" {
		return mr.SourceURL, nil
	}
	return "", fmt.Errorf("upload response carries no media URL")
}

// exifArtist pulls the artist tag from JPEG metadata for attribution.
// Generated images rarely carry one; sourced photos sometimes do.
func exifArtist(data []byte) string {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	tag, err := x.Get(exif.Artist)
	if err != nil {
		return ""
	}
	artist, err := tag.StringVal()
	if err != nil {
		log.Printf("unreadable EXIF artist tag: %v", err)
		return ""
	}
	return artist
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "png", "gif", "webp":
		return format
	default:
		return "img"
	}
}
