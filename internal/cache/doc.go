// Package cache provides the bounded LRU map used for context-independent
// shared tables, such as per-tile-size cube face direction tables and
// compiled shader binaries.
//
//	c := cache.New[int, *Table](8)
//	c.OnEvict(func(size int, t *Table) { ... })
//	tbl := c.GetOrCreate(256, func() *Table { return buildTable(256) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
