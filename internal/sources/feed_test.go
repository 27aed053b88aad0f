package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
)

func rss(items string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Thanh Niên</title><link>https://thanhnien.vn</link>%s</channel></rss>`, items)
}

const thoiSuFeed = `
<item><title>Tin hôm nay</title><link>https://thanhnien.vn/a1.htm</link>
<description><![CDATA[<a href="https://thanhnien.vn/a1.htm"><img src="x.jpg"></a>Nội dung <b>chính</b>]]></description>
<pubDate>Tue, 10 Feb 2026 08:00:00 +0700</pubDate></item>
<item><title>Tin hôm qua</title><link>https://thanhnien.vn/a0.htm</link><pubDate>Mon, 09 Feb 2026 08:00:00 +0700</pubDate></item>
<item><title>Không ngày</title><link>https://thanhnien.vn/a2.htm</link></item>
<item><title>Tin thứ ba</title><link>https://thanhnien.vn/a3.htm</link><pubDate>Tue, 10 Feb 2026 09:00:00 +0700</pubDate></item>`

const kinhTeFeed = `
<item><title>Tin hôm nay</title><link>https://thanhnien.vn/a1.htm</link><pubDate>Tue, 10 Feb 2026 08:00:00 +0700</pubDate></item>
<item><title>Kinh tế</title><link>https://thanhnien.vn/b1.htm</link><description>Giá vàng tăng</description><pubDate>Tue, 10 Feb 2026 10:00:00 +0700</pubDate></item>`

func feedOutlet(feeds ...string) common.OutletConfig {
	return common.OutletConfig{
		Name:     "Thanh Niên",
		Priority: "P2",
		Kind:     "feed",
		Feeds:    feeds,
		MaxItems: 2,
	}
}

func TestFeedFetcher_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/thoi-su.rss", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rss(thoiSuFeed)))
	})
	mux.HandleFunc("/kinh-te.rss", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rss(kinhTeFeed)))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewFeedFetcher(feedOutlet(server.URL+"/thoi-su.rss", server.URL+"/kinh-te.rss"), testClient(), nil, arbor.NewLogger())
	result := fetcher.Fetch(context.Background(), targetDate(t))

	require.NoError(t, result.Err)
	require.Len(t, result.Items, 3)

	first := result.Items[0].(models.NewsItem)
	assert.Equal(t, "Tin hôm nay", first.Title)
	assert.Equal(t, "Nội dung chính", first.Content)

	second := result.Items[1].(models.NewsItem)
	assert.Equal(t, "Không ngày", second.Title, "entries without a date are kept")
	assert.Equal(t, "Không ngày", second.Content)

	third := result.Items[2].(models.NewsItem)
	assert.Equal(t, "https://thanhnien.vn/b1.htm", third.URL, "duplicate link across feeds is dropped")
	assert.Equal(t, "Giá vàng tăng", third.Content)
}

func TestFeedFetcher_FallbackWhenAllFeedsFail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingHTML))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient()
	logger := arbor.NewLogger()
	fallbackConfig := testOutlet(server.URL + "/")
	fallbackConfig.Name = "Thanh Niên HTML"
	fallback := NewOutletFetcher(fallbackConfig, client, logger)

	fetcher := NewFeedFetcher(feedOutlet(server.URL+"/rss"), client, fallback, logger)
	result := fetcher.Fetch(context.Background(), targetDate(t))

	require.NoError(t, result.Err)
	assert.Equal(t, "Thanh Niên", result.Source)
	assert.Len(t, result.Items, 2)
}

func TestFeedFetcher_AllFeedsFailWithoutFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	result := NewFeedFetcher(feedOutlet(server.URL+"/rss"), testClient(), nil, arbor.NewLogger()).
		Fetch(context.Background(), targetDate(t))

	assert.ErrorIs(t, result.Err, models.ErrFetch)
	assert.Empty(t, result.Items)
}

func TestEarthquakeFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rss(`
<item><title>Động đất tại Kon Tum</title><link>http://igp-vast.vn/q1</link><description>&lt;p&gt;Độ lớn &lt;b&gt;3.2&lt;/b&gt;&lt;/p&gt;</description><pubDate>Tue, 10 Feb 2026 05:00:00 +0700</pubDate></item>
<item><title>Cũ</title><link>http://igp-vast.vn/q0</link><pubDate>Sun, 08 Feb 2026 05:00:00 +0700</pubDate></item>
<item><title></title><link>http://igp-vast.vn/q2</link></item>`)))
	}))
	defer server.Close()

	fetcher := NewEarthquakeFetcher(common.EarthquakeConfig{Enabled: true, FeedURL: server.URL, MaxItems: 3}, testClient(), arbor.NewLogger())
	quakes, err := fetcher.FetchEarthquakes(context.Background(), targetDate(t))

	require.NoError(t, err)
	require.Len(t, quakes, 2)
	assert.Equal(t, "Động đất tại Kon Tum", quakes[0].Title)
	assert.Equal(t, "Độ lớn 3.2", quakes[0].Content)
	assert.Equal(t, "Earthquake Report", quakes[1].Title)
}
