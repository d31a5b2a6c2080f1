package core

// ValidateBlock runs the block admission checks against chain without
// appending anything, for callers that want the verdict without
// committing. It is equivalent to the checks AddBlock runs before
// execution, so the block must already be signed to pass.
func ValidateBlock(chain *Chain, block *Block) error {
	chain.mu.RLock()
	defer chain.mu.RUnlock()
	return chain.checkAdmission(block)
}

// checkAdmission runs the ordered admission rules. Callers must already
// hold at least chain.mu.RLock (AddBlock holds the stronger write lock).
//
//  1. reject duplicates: a header already exists at this height.
//  2. reject gaps and past heights: height must be exactly tip+1.
//  3. reject a mismatched parent: prev_block_header_hash must equal the
//     hash of the chain's current header at height-1 (or genesis at 0).
//  4. reject structural/cryptographic failures: Block.Verify.
func (c *Chain) checkAdmission(block *Block) error {
	if c.hasBlockLocked(block.Header.Height) {
		h, _ := block.Hash()
		return &BlockAlreadyExistsError{Hash: h}
	}

	tip := uint32(len(c.headers)) - 1
	if block.Header.Height != tip+1 {
		return &InvalidBlockError{Reason: "height does not follow the current tip"}
	}

	prevHeader, err := c.getHeaderLocked(block.Header.Height - 1)
	if err != nil {
		return &InvalidBlockError{Reason: "no previous header to link against"}
	}
	expectedPrev, err := HashHeader(prevHeader)
	if err != nil {
		return &InvalidBlockError{Reason: "could not hash previous header"}
	}
	if block.Header.PrevBlockHeaderHash == nil || *block.Header.PrevBlockHeaderHash != expectedPrev {
		return &InvalidBlockError{Reason: "prev_block_header_hash mismatch"}
	}

	if err := block.Verify(); err != nil {
		return err
	}
	return nil
}
