// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package meta

import (
	"github.com/Fantom-foundation/Iolite/go/tosca"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"
)

// metaLogsCache memorizes decoded simple metadata payloads by their hash. A
// nil cache is valid and caches nothing.
type metaLogsCache struct {
	cache *lru.Cache[tosca.Hash, tosca.MetaLogs]
}

func newMetaLogsCache(size int) *metaLogsCache {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New[tosca.Hash, tosca.MetaLogs](size)
	if err != nil {
		return nil
	}
	return &metaLogsCache{cache: cache}
}

func (c *metaLogsCache) get(metadata tosca.Data) (tosca.MetaLogs, bool) {
	if c == nil {
		return tosca.MetaLogs{}, false
	}
	logs, found := c.cache.Get(hashMetadata(metadata))
	if !found {
		return tosca.MetaLogs{}, false
	}
	return logs.Clone(), true
}

func (c *metaLogsCache) add(metadata tosca.Data, logs tosca.MetaLogs) {
	if c == nil {
		return
	}
	c.cache.Add(hashMetadata(metadata), logs.Clone())
}

func (c *metaLogsCache) len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func hashMetadata(metadata tosca.Data) (res tosca.Hash) {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(metadata)
	hasher.Sum(res[:0])
	return res
}
