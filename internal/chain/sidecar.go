// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package chain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// SidecarSigner builds and signs extrinsics through the signing sidecar, a
// separate process holding the collaborator keys and the runtime metadata.
// Keeping SCALE codec and key material out of this daemon means a key
// rotation never requires a redeploy here.
type SidecarSigner struct {
	baseURL string
	http    *http.Client
}

func NewSidecarSigner(baseURL string) *SidecarSigner {
	return &SidecarSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type signRequest struct {
	Account string            `json:"account"`
	Nonce   uint64            `json:"nonce"`
	Params  CreateVideoParams `json:"params"`
}

type signResponse struct {
	ExtrinsicHex  string `json:"extrinsicHex"`
	ExtrinsicHash string `json:"extrinsicHash"`
}

// BuildCreateVideo asks the sidecar for a signed createVideo extrinsic.
func (s *SidecarSigner) BuildCreateVideo(account string, nonce uint64, p CreateVideoParams) (*SignedExtrinsic, error) {
	var resp signResponse
	if err := s.post("/sign/create-video", signRequest{Account: account, Nonce: nonce, Params: p}, &resp); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(strings.TrimPrefix(resp.ExtrinsicHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("sidecar extrinsic hex: %w", err)
	}
	return &SignedExtrinsic{Data: data, Hash: resp.ExtrinsicHash}, nil
}

type decodeRequest struct {
	BlockHash     string `json:"blockHash"`
	ExtrinsicHash string `json:"extrinsicHash"`
}

type decodeResponse struct {
	Events []Event `json:"events"`
}

// DecodeEvents asks the sidecar to decode the runtime events attributed to
// an extrinsic inside a finalized block.
func (s *SidecarSigner) DecodeEvents(blockHash, extrinsicHash string) ([]Event, error) {
	var resp decodeResponse
	if err := s.post("/decode/events", decodeRequest{BlockHash: blockHash, ExtrinsicHash: extrinsicHash}, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (s *SidecarSigner) post(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := s.http.Post(s.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("signing sidecar: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("signing sidecar: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signing sidecar %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
