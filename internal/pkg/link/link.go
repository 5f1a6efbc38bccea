package link

import (
	"net/url"
	"strings"
)

// Builder は予約管理用の絶対URLを組み立てるインターフェース
type Builder interface {
	// ConfirmLink は予約確定ページへのURLを返す
	ConfirmLink(email, token string) string
	// CancelLink は予約キャンセルページへのURLを返す
	CancelLink(email, token string) string
	// ReservationLink は新規予約ページへのURLを返す
	ReservationLink() string
}

// URLBuilder は設定されたスキーム・ホスト・パスからURLを生成する
type URLBuilder struct {
	scheme   string
	host     string
	pathBase string
}

// NewBuilder は新しい URLBuilder を作成する
func NewBuilder(scheme, host, pathBase string) *URLBuilder {
	return &URLBuilder{
		scheme:   scheme,
		host:     host,
		pathBase: strings.TrimSuffix(pathBase, "/"),
	}
}

func (b *URLBuilder) build(page string, query url.Values) string {
	u := url.URL{
		Scheme: b.scheme,
		Host:   b.host,
		Path:   b.pathBase + page,
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (b *URLBuilder) managementQuery(email, token string) url.Values {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return q
}

func (b *URLBuilder) ConfirmLink(email, token string) string {
	return b.build("/confirm", b.managementQuery(email, token))
}

func (b *URLBuilder) CancelLink(email, token string) string {
	return b.build("/cancel", b.managementQuery(email, token))
}

func (b *URLBuilder) ReservationLink() string {
	return b.build("/", nil)
}

var _ Builder = (*URLBuilder)(nil)
