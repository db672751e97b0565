// Package extractor fetches fund pages and turns their dividend history
// table into reconcile.Record values.
//
// Pages come from a Fetcher: HTTPFetcher for server-rendered pages and
// BrowserFetcher (headless Chrome) for pages that render the table with
// JavaScript. ParseDividendTable reads the most recent row by column
// header name. Collector runs extractions with bounded parallelism, a
// request rate limit and a circuit breaker, and never fails: a ticker that
// cannot be extracted gets an empty record.
package extractor
