package main

import (
	"fmt"
	"regexp"

	"github.com/websum/websum"
	"github.com/websum/websum/crawl"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	// Compile filters to URLFilter (validates regex patterns early)
	var urlFilter *websum.URLFilter
	if len(c.Filter) > 0 || len(c.Exclude) > 0 {
		urlFilter = &websum.URLFilter{}
		for _, pattern := range c.Filter {
			re, err := regexp.Compile(pattern)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: invalid filter pattern %q: %v\n", pattern, err)
				return err
			}
			urlFilter.Include = append(urlFilter.Include, re)
		}
		for _, pattern := range c.Exclude {
			re, err := regexp.Compile(pattern)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: invalid exclude pattern %q: %v\n", pattern, err)
				return err
			}
			urlFilter.Exclude = append(urlFilter.Exclude, re)
		}
	}

	cfg := websum.DefaultConfig()
	cfg.MaxDepth = c.MaxDepth
	cfg.MaxPages = c.MaxPages
	cfg.Concurrency = c.Concurrency
	cfg.BaseDelay = c.Delay
	cfg.MaxDelay = c.MaxDelay
	cfg.BackoffFactor = c.Backoff
	cfg.MaxRetries = c.Retries
	cfg.FetchTimeout = c.Timeout
	cfg.GlobalRPM = c.RPM
	cfg.Resume = websum.ResumeMode(c.Resume)

	seeds := c.URLs
	if c.Sitemap {
		for _, seed := range c.URLs {
			urls, err := deps.Sitemaps.DiscoverURLs(deps.Ctx, seed, urlFilter)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "warning: sitemap discovery failed for %s: %s\n", seed, websum.ErrorMessage(err))
				continue
			}
			seeds = append(seeds, urls...)
		}
	}

	crawler := &crawl.Crawler{
		Config:      cfg,
		Fetcher:     deps.Fetcher,
		Sink:        &printSink{out: deps.Stdout},
		CacheStore:  deps.Cache,
		Checkpoints: deps.Checkpoints,
		Filter:      urlFilter,
		CacheRef:    deps.CacheRef,
		Logger:      deps.Logger,
	}

	result, err := crawler.Run(deps.Ctx, seeds)
	if result != nil {
		fmt.Fprintf(deps.Stdout, "Processed %d pages (%d ok, %d failed, %d skipped)\n",
			result.Processed, result.Succeeded, result.Failed, result.Skipped)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websum.ErrorMessage(err))
		return err
	}
	return nil
}
