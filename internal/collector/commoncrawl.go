package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"spyosint/internal/models"
	"strconv"
	"strings"
	"sync"
)

// DefaultCommonCrawlURL public Common Crawl index server
const DefaultCommonCrawlURL = "https://index.commoncrawl.org"

const maxCrawlSamples = 20

// CommonCrawl web-archive-history adapter over the Common Crawl index
type CommonCrawl struct {
	client   *http.Client
	baseURL  string
	crawls   int
	perCrawl int
}

// NewCommonCrawl creates the adapter. crawls is how many of the newest crawls
// are searched (default 3).
func NewCommonCrawl(client *http.Client, baseURL string, crawls int) *CommonCrawl {
	if baseURL == "" {
		baseURL = DefaultCommonCrawlURL
	}
	if crawls <= 0 {
		crawls = 3
	}
	return &CommonCrawl{client: client, baseURL: strings.TrimRight(baseURL, "/"), crawls: crawls, perCrawl: 100}
}

func (c *CommonCrawl) ID() models.ProviderID { return models.ProviderCommonCrawl }

func (c *CommonCrawl) RequiresCredential() bool { return false }

func (c *CommonCrawl) Accepts(t models.QueryType) bool {
	return acceptsOneOf(t, models.QueryURL, models.QueryDomain)
}

type crawlInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	CDXAPI string `json:"cdx-api"`
}

type crawlLine struct {
	URL          string `json:"url"`
	Timestamp    string `json:"timestamp"`
	Status       string `json:"status"`
	Mime         string `json:"mime"`
	MimeDetected string `json:"mime-detected"`
	Languages    string `json:"languages"`
}

func (c *CommonCrawl) Execute(ctx context.Context, q models.Query, cred *models.ProviderCredential) (models.Result, error) {
	if err := checkGate(c, q, cred); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/collinfo.json", nil)
	if err != nil {
		return nil, models.InvalidInput(c.ID(), "bad collinfo request: %v", err)
	}
	var infos []crawlInfo
	if err := fetchJSON(ctx, c.client, c.ID(), req, &infos); err != nil {
		return nil, err
	}
	if len(infos) > c.crawls {
		infos = infos[:c.crawls]
	}

	target := archiveTarget(q)
	perCrawl := make(map[string][]crawlLine)
	var failures []error
	var mutex sync.Mutex
	var wg sync.WaitGroup

	for _, info := range infos {
		wg.Add(1)
		go func(info crawlInfo) {
			defer wg.Done()
			lines, err := c.queryCrawl(ctx, info, target)

			mutex.Lock()
			defer mutex.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if len(lines) > 0 {
				perCrawl[info.ID] = lines
			}
		}(info)
	}
	wg.Wait()

	if len(infos) > 0 && len(failures) == len(infos) {
		return nil, failures[0]
	}

	return c.normalize(q, perCrawl), nil
}

// queryCrawl reads one crawl index. A 404 means the crawl has no captures.
func (c *CommonCrawl) queryCrawl(ctx context.Context, info crawlInfo, target string) ([]crawlLine, error) {
	api := info.CDXAPI
	if api == "" {
		api = fmt.Sprintf("%s/%s-index", c.baseURL, info.ID)
	}
	params := url.Values{
		"url":    {target},
		"output": {"json"},
		"limit":  {strconv.Itoa(c.perCrawl)},
	}
	req, err := http.NewRequest(http.MethodGet, api+"?"+params.Encode(), nil)
	if err != nil {
		return nil, models.InvalidInput(c.ID(), "bad index request: %v", err)
	}

	body, err := fetch(ctx, c.client, c.ID(), req)
	if err != nil {
		var pe *models.ProviderError
		if errors.As(err, &pe) && pe.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var lines []crawlLine
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line crawlLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, models.ParseFailure(c.ID(), err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (c *CommonCrawl) normalize(q models.Query, perCrawl map[string][]crawlLine) *models.CrawlIndex {
	result := &models.CrawlIndex{
		Meta:      models.NewMeta(c.ID(), models.KindCrawlIndex, q),
		URL:       strings.TrimSpace(q.RawValue),
		MimeTypes: map[string]int{},
	}

	languages := make(map[string]bool)
	for crawlID, lines := range perCrawl {
		result.Crawls = append(result.Crawls, crawlID)
		for _, line := range lines {
			result.Records++

			mime := line.MimeDetected
			if mime == "" {
				mime = line.Mime
			}
			if mime != "" {
				result.MimeTypes[mime]++
			}
			for _, lang := range strings.Split(line.Languages, ",") {
				if lang = strings.TrimSpace(lang); lang != "" {
					languages[lang] = true
				}
			}

			ts, _ := parseArchiveTimestamp(line.Timestamp)
			result.Samples = append(result.Samples, models.CrawlRecord{
				URL:       line.URL,
				Timestamp: ts,
				Status:    line.Status,
				Mime:      mime,
			})
		}
	}

	// newest crawl ids sort last lexically (CC-MAIN-YYYY-WW)
	sort.Sort(sort.Reverse(sort.StringSlice(result.Crawls)))
	for lang := range languages {
		result.Languages = append(result.Languages, lang)
	}
	sort.Strings(result.Languages)

	sort.Slice(result.Samples, func(i, j int) bool {
		return result.Samples[i].Timestamp.After(result.Samples[j].Timestamp)
	})
	if len(result.Samples) > maxCrawlSamples {
		result.Samples = result.Samples[:maxCrawlSamples]
	}

	result.Normalize()
	return result
}
