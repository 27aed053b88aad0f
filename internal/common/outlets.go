package common

// Section names shared by the aggregator, translator and renderer
const (
	SectionSafety     = "안전 및 기상 관제"
	SectionHealth     = "Sức khỏe & Đời sống"
	SectionGovernment = "Nhân Dân"
)

const (
	defaultArticleSelector = "article, div.box-category-item, div.item-news, div.horizontalPost, div.verticalPost"
	defaultTitleSelector   = "h2 a, h3 a, a.box-category-link-title"
	defaultSummarySelector = "p.sapo, div.summary, p.description, .box-category-sapo"
	defaultDateSelector    = "time, span.date, div.article-date, span.time"
)

// DefaultOutlets returns the production outlet catalog in priority order.
// Caps and allow-lists match the values the newsroom agreed on; change them here or in config, not in fetchers.
func DefaultOutlets() []OutletConfig {
	return []OutletConfig{
		htmlOutlet(SectionHealth, "P0", 5, []string{"https://suckhoedoisong.vn/"}, nil),
		{
			Name:            SectionGovernment,
			Priority:        "P1",
			Kind:            "html",
			Pages:           []string{"https://nhandan.vn/"},
			ArticleSelector: "article.story, article.news-item, div.article",
			TitleSelector:   "h2 a, h3 a, .story__heading a",
			SummarySelector: defaultSummarySelector,
			DateSelector:    defaultDateSelector,
			Checked:         5,
			MaxItems:        2,
		},
		htmlOutlet("Tuổi Trẻ", "P2", 10, []string{"https://tuoitre.vn/"}, nil),
		htmlOutlet("VnExpress", "P2", 10, []string{"https://vnexpress.net/"}, []string{"/thoi-su/", "/kinh-doanh/"}),
		htmlOutlet("VietnamNet", "P2", 10, []string{"https://vietnamnet.vn/"}, []string{"/thoi-su/", "/kinh-doanh/", "/tai-chinh/"}),
		{
			Name:     "Thanh Niên",
			Priority: "P2",
			Kind:     "feed",
			Feeds: []string{
				"https://thanhnien.vn/rss/thoi-su.rss",
				"https://thanhnien.vn/rss/kinh-te.rss",
				"https://thanhnien.vn/rss/doi-song.rss",
			},
			MaxItems: 2,
			Fallback: func() *OutletConfig {
				fallback := htmlOutlet("Thanh Niên", "P2", 10, []string{"https://thanhnien.vn/"}, []string{"/thoi-su/", "/kinh-te/"})
				return &fallback
			}(),
		},
		htmlOutlet("The Saigon Times", "P2", 10, []string{"https://thesaigontimes.vn/"},
			[]string{"/noi-bat-2/", "/kinh-doanh/", "/tai-chinh-ngan-hang/", "/dia-oc/"}),
		htmlOutlet("VietnamNet 정보통신", "P2", 10, []string{"https://vietnamnet.vn/thong-tin-truyen-thong"}, nil),
		htmlOutlet("VnExpress IT/과학", "P2", 10, []string{"https://vnexpress.net/khoa-hoc-cong-nghe"}, nil),
	}
}

func htmlOutlet(name, priority string, checked int, pages, allow []string) OutletConfig {
	return OutletConfig{
		Name:            name,
		Priority:        priority,
		Kind:            "html",
		Pages:           pages,
		AllowPaths:      allow,
		ArticleSelector: defaultArticleSelector,
		TitleSelector:   defaultTitleSelector,
		SummarySelector: defaultSummarySelector,
		DateSelector:    defaultDateSelector,
		Checked:         checked,
		MaxItems:        2,
	}
}
