package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/indexer"
)

// Handler holds all dependencies needed to serve RPC methods. It is a
// read-only surface plus a single write path (submitTx into the
// mempool) — it never touches the chain keeper's write path directly.
type Handler struct {
	chain   *core.Chain
	mempool *core.Mempool
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler. idx may be nil, in which case
// getRecentBlocks always reports an internal error rather than panicking.
func NewHandler(chain *core.Chain, mempool *core.Mempool, idx *indexer.Indexer) *Handler {
	return &Handler{chain: chain, mempool: mempool, indexer: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getHeight":
		return okResponse(req.ID, h.chain.Height())

	case "getHeader":
		return h.getHeader(req)

	case "getBlock":
		return h.getBlock(req)

	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	case "submitTx":
		return h.submitTx(req)

	case "getRecentBlocks":
		return h.getRecentBlocks(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getHeader(req Request) Response {
	var params struct {
		Height uint32 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	header, err := h.chain.GetHeader(params.Height)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, header)
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Height uint32 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	block, err := h.chain.GetBlock(params.Height)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, block)
}

func (h *Handler) submitTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if err := tx.Verify(); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	tx.MarkFirstSeen()
	if err := h.mempool.AddTx(&tx); err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	hash := tx.Hash()
	return okResponse(req.ID, map[string]string{"tx_hash": hash.String()})
}

// recentBlock pairs a committed height with its indexed block hash.
type recentBlock struct {
	Height uint32 `json:"height"`
	Hash   string `json:"hash"`
}

// getRecentBlocks pages the most recently committed block hashes out of
// the secondary index without rescanning the chain keeper. Params:
// {"limit": int}; limit <= 0 or omitted means "all retained entries".
func (h *Handler) getRecentBlocks(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeInternalError, "indexer not available")
	}
	var params struct {
		Limit int `json:"limit"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		}
	}
	heights, err := h.indexer.RecentHeights(params.Limit)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	blocks := make([]recentBlock, 0, len(heights))
	for _, height := range heights {
		hash, ok := h.indexer.GetHashAtHeight(height)
		if !ok {
			continue
		}
		blocks = append(blocks, recentBlock{Height: height, Hash: hash})
	}
	return okResponse(req.ID, blocks)
}
