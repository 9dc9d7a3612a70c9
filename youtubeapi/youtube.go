// Package youtubeapi wraps the YouTube Data API for the purposes of this service:
// video metadata lookup (including live status), live chat message pages, and
// top-level comment threads ordered by time. Access is API-key based; requests
// carry no user credentials.
package youtubeapi

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"hatewatch/config"
)

// videoIDPattern matches the v= parameter of a YouTube watch URL.
var videoIDPattern = regexp.MustCompile(`v=([a-zA-Z0-9_-]{11})`)

// ExtractVideoID pulls the 11-character video id out of a watch URL.
func ExtractVideoID(url string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("invalid video url: %q", url)
	}
	return m[1], nil
}

// VideoDetails is the snippet-level metadata for a video.
type VideoDetails struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EmbedURL    string `json:"embed_url"`
}

// LiveChatItem is one event from a live chat page. Type carries the upstream
// event type verbatim (e.g. textMessageEvent, superChatEvent).
type LiveChatItem struct {
	Type   string
	Text   string
	Author string
}

// LiveChatPage is one fetch of live chat messages plus the continuation state
// needed for the next fetch.
type LiveChatPage struct {
	Items                 []LiveChatItem
	NextPageToken         string
	PollingIntervalMillis int64
}

// TimedComment is a top-level comment with its publish timestamp.
type TimedComment struct {
	Text        string
	Author      string
	PublishedAt time.Time
}

// Client talks to the YouTube Data API v3.
type Client struct {
	svc *yt.Service
}

// New builds a Client from config. Extra options (custom endpoint, HTTP client)
// are appended after the API key so tests can point at a mock server.
func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Client, error) {
	all := []option.ClientOption{option.WithAPIKey(cfg.YouTubeAPIKey)}
	if cfg.YouTubeEndpoint != "" {
		all = append(all, option.WithEndpoint(cfg.YouTubeEndpoint))
	}
	all = append(all, opts...)
	svc, err := yt.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// VideoDetails fetches snippet metadata for a video id.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (VideoDetails, error) {
	resp, err := c.svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return VideoDetails{}, fmt.Errorf("fetch video details: %w", err)
	}
	if len(resp.Items) == 0 {
		return VideoDetails{}, fmt.Errorf("no video found for id %q", videoID)
	}
	sn := resp.Items[0].Snippet
	d := VideoDetails{VideoID: videoID, EmbedURL: "https://www.youtube.com/embed/" + videoID}
	if sn != nil {
		d.Title = sn.Title
		d.Description = sn.Description
	}
	return d, nil
}

// LiveChatID returns the active live chat id for a video, or "" when the video
// is not currently live. An error means the upstream query itself failed.
func (c *Client) LiveChatID(ctx context.Context, videoID string) (string, error) {
	resp, err := c.svc.Videos.List([]string{"snippet", "liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetch live streaming details: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	lsd := resp.Items[0].LiveStreamingDetails
	if lsd == nil {
		return "", nil
	}
	return lsd.ActiveLiveChatId, nil
}

// FetchLiveChatPage fetches one page of live chat messages. An empty pageToken
// starts from the live position; subsequent calls must pass the NextPageToken
// from the previous page.
func (c *Client) FetchLiveChatPage(ctx context.Context, liveChatID, pageToken string) (LiveChatPage, error) {
	call := c.svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return LiveChatPage{}, fmt.Errorf("fetch live chat messages: %w", err)
	}
	page := LiveChatPage{
		NextPageToken:         resp.NextPageToken,
		PollingIntervalMillis: resp.PollingIntervalMillis,
	}
	for _, item := range resp.Items {
		var li LiveChatItem
		if item.Snippet != nil {
			li.Type = item.Snippet.Type
			li.Text = item.Snippet.DisplayMessage
		}
		if item.AuthorDetails != nil {
			li.Author = item.AuthorDetails.DisplayName
		}
		page.Items = append(page.Items, li)
	}
	return page, nil
}

// FetchCommentPage fetches the most recent top-level comments for a non-live
// video, newest first as reported upstream (order=time). Callers sort as needed.
func (c *Client) FetchCommentPage(ctx context.Context, videoID string, maxResults int64) ([]TimedComment, error) {
	resp, err := c.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).Order("time").MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch comment threads: %w", err)
	}
	out := make([]TimedComment, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		sn := item.Snippet.TopLevelComment.Snippet
		tc := TimedComment{Text: sn.TextOriginal, Author: sn.AuthorDisplayName}
		if ts, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			tc.PublishedAt = ts
		}
		out = append(out, tc)
	}
	return out, nil
}
