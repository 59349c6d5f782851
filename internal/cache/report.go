package cache

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"kashela/internal/core"
)

// ReportCache memoizes monthly reports per user and month. Every
// invalidation bumps a generation counter, so a report computed before a
// write can be refused by Fill instead of being cached stale.
type ReportCache struct {
	lru *LRUCache[core.MonthlyReport]

	mu        sync.Mutex
	monthGens map[string]uint64
	userGens  map[string]uint64
}

// FillToken records the generation of one user-month at the moment a
// report computation starts.
type FillToken struct {
	userID   string
	key      string
	monthGen uint64
	userGen  uint64
}

func NewReportCache(maxEntries int, ttl time.Duration) *ReportCache {
	return &ReportCache{
		lru:       NewLRUCache[core.MonthlyReport](maxEntries, ttl),
		monthGens: make(map[string]uint64),
		userGens:  make(map[string]uint64),
	}
}

func reportKey(userID string, year, month int) string {
	return fmt.Sprintf("%s|%04d-%02d", userID, year, month)
}

// Get returns a copy of the cached report; callers may modify it freely.
func (c *ReportCache) Get(userID string, year, month int) (core.MonthlyReport, bool) {
	r, ok := c.lru.Get(reportKey(userID, year, month))
	if !ok {
		return core.MonthlyReport{}, false
	}
	return cloneReport(r), true
}

// Set stores r unconditionally.
func (c *ReportCache) Set(userID string, r core.MonthlyReport) {
	c.lru.Set(reportKey(userID, r.Year, r.Month), cloneReport(r))
}

// Token must be taken before reading the transactions a report is built
// from.
func (c *ReportCache) Token(userID string, year, month int) FillToken {
	key := reportKey(userID, year, month)
	c.mu.Lock()
	defer c.mu.Unlock()
	return FillToken{userID: userID, key: key, monthGen: c.monthGens[key], userGen: c.userGens[userID]}
}

// Fill stores r only if nothing invalidated its month since tok was taken.
// It reports whether r was stored.
func (c *ReportCache) Fill(tok FillToken, r core.MonthlyReport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monthGens[tok.key] != tok.monthGen || c.userGens[tok.userID] != tok.userGen {
		return false
	}
	c.lru.Set(tok.key, cloneReport(r))
	return true
}

// InvalidateMonth drops one cached month for a user.
func (c *ReportCache) InvalidateMonth(userID string, year, month int) {
	key := reportKey(userID, year, month)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monthGens[key]++
	c.lru.Delete(key)
}

// InvalidateUser drops every cached month for a user.
func (c *ReportCache) InvalidateUser(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userGens[userID]++
	return c.lru.DeletePrefix(userID + "|")
}

func (c *ReportCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *ReportCache) Stats() Stats { return c.lru.Stats() }

func cloneReport(r core.MonthlyReport) core.MonthlyReport {
	r.IncomeBreakdown = maps.Clone(r.IncomeBreakdown)
	r.ExpenseBreakdown = maps.Clone(r.ExpenseBreakdown)
	return r
}
