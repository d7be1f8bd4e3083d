package bitrix

import (
	"fmt"
	"net/url"
)

// Endpoints holds the provider webhook URL set. Each method lives behind its
// own secret path segment; the full URLs are credentials and must never be
// logged or serialized. Use Redacted for anything user- or log-visible.
type Endpoints struct {
	BaseURL           string
	UserGetSecret     string
	RecentListSecret  string
	DialogFetchSecret string
	OpenLinesSecret   string
}

func (e Endpoints) userGetURL() string {
	return fmt.Sprintf("%s/%s/user.get.json", e.BaseURL, e.UserGetSecret)
}

func (e Endpoints) recentListURL() string {
	return fmt.Sprintf("%s/%s/im.recent.list.json", e.BaseURL, e.RecentListSecret)
}

func (e Endpoints) dialogFetchURL() string {
	return fmt.Sprintf("%s/%s/im.dialog.messages.get", e.BaseURL, e.DialogFetchSecret)
}

func (e Endpoints) openLinesURL() string {
	return fmt.Sprintf("%s/%s/imopenlines.dialog.get.json", e.BaseURL, e.OpenLinesSecret)
}

// Redacted returns the scheme and host of the webhook base with all path
// segments stripped, safe for logs.
func (e Endpoints) Redacted() string {
	u, err := url.Parse(e.BaseURL)
	if err != nil || u.Host == "" {
		return "<invalid provider url>"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
