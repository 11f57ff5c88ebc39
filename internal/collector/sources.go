package collector

import "log"

// 内置数据源名称（即 Fetcher.Name）
const (
	SourceSina       = "新浪财经"
	SourceEastmoney  = "东方财富"
	SourceCLS        = "财联社"
	SourceBroker     = "券商研报"
	SourceKr36       = "36氪"
	SourceHuxiu      = "虎嗅"
	SourceRedditDesk = "Reddit 股市"
)

// brokerTitleKeywords 券商 feed 中只保留研报类标题
var brokerTitleKeywords = []string{"研报", "报告", "深度", "分析", "投资", "策略"}

func NewEastmoneyFetcher() *RSSFetcher {
	return NewRSSFetcher(SourceEastmoney, RSSFirstNonEmpty,
		Feed{Name: "东方财富", URL: "https://www.eastmoney.com/rss/index.xml"},
		Feed{Name: "东方财富股票", URL: "https://www.eastmoney.com/rss/stock.xml"},
	)
}

// NewBrokerFetcher 聚合头部券商研报 feed，来源名为 "<券商>研报"
func NewBrokerFetcher() *RSSFetcher {
	f := NewRSSFetcher(SourceBroker, RSSAggregate,
		Feed{Name: "中金公司研报", URL: "https://research.cicc.com/rss/research.xml"},
		Feed{Name: "中信证券研报", URL: "https://research.citics.com/rss/index.xml"},
		Feed{Name: "国泰君安研报", URL: "https://research.gtja.com/rss/research.xml"},
		Feed{Name: "华泰证券研报", URL: "https://research.htsc.com/rss/index.xml"},
		Feed{Name: "招商证券研报", URL: "https://research.cmschina.com/rss/index.xml"},
		Feed{Name: "海通证券研报", URL: "https://research.htsec.com/rss/index.xml"},
		Feed{Name: "广发证券研报", URL: "https://research.gf.com.cn/rss/index.xml"},
		Feed{Name: "申万宏源研报", URL: "https://research.swsresearch.com/rss/index.xml"},
		Feed{Name: "兴业证券研报", URL: "https://research.xyzq.com.cn/rss/index.xml"},
		Feed{Name: "长江证券研报", URL: "https://research.cjsc.com.cn/rss/index.xml"},
	)
	f.MaxItems = 30
	f.TitleKeywords = brokerTitleKeywords
	return f
}

func NewKr36Fetcher() *RSSFetcher {
	return NewRSSFetcher(SourceKr36, RSSFirstNonEmpty, Feed{URL: "https://36kr.com/feed"})
}

func NewHuxiuFetcher() *RSSFetcher {
	return NewRSSFetcher(SourceHuxiu, RSSFirstNonEmpty, Feed{URL: "https://www.huxiu.com/rss/0.xml"})
}

// NewRedditStocksFetcher 海外股市讨论，作为华尔街见闻的替代源
func NewRedditStocksFetcher() *RSSFetcher {
	return NewRSSFetcher(SourceRedditDesk, RSSFirstNonEmpty, Feed{URL: "https://www.reddit.com/r/stocks/.rss"})
}

// ExtraFeed 通过配置追加的独立 RSS 数据源
type ExtraFeed struct {
	Name string   `yaml:"name"`
	URLs []string `yaml:"urls"`
}

// Options 控制内置采集器的注册
type Options struct {
	// RendererURL 指向 browser-scraper 的 /render，为空时财联社不做渲染兜底
	RendererURL string
	// Disabled 按名称关闭内置数据源
	Disabled []string
	Extra    []ExtraFeed
}

// Builtin 按固定顺序返回已启用的采集器；注册顺序决定合并顺序
func Builtin(opts Options) []Fetcher {
	disabled := make(map[string]struct{}, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[name] = struct{}{}
	}

	var renderer Renderer
	if opts.RendererURL != "" {
		renderer = NewSidecarRenderer(opts.RendererURL)
	}

	all := []Fetcher{
		NewSinaFetcher(),
		NewEastmoneyFetcher(),
		NewRedditStocksFetcher(),
		NewCLSFetcher(renderer),
		NewBrokerFetcher(),
		NewKr36Fetcher(),
		NewHuxiuFetcher(),
	}
	for _, ex := range opts.Extra {
		if ex.Name == "" || len(ex.URLs) == 0 {
			log.Printf("skip extra feed with empty name or urls: %+v", ex)
			continue
		}
		feeds := make([]Feed, 0, len(ex.URLs))
		for _, u := range ex.URLs {
			feeds = append(feeds, Feed{URL: u})
		}
		all = append(all, NewRSSFetcher(ex.Name, RSSFirstNonEmpty, feeds...))
	}

	out := make([]Fetcher, 0, len(all))
	for _, f := range all {
		if _, off := disabled[f.Name()]; off {
			continue
		}
		out = append(out, f)
	}
	return out
}
