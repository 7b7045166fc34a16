package client

import "go.uber.org/zap"

// probeFamily determines which controller firmware family answers at the
// configured address. The bare address is probed first: a unified-OS
// controller stamps every response with an X-CSRF-Token header, even
// unauthenticated ones. Failing that, the fixed legacy port is probed.
//
// FamilyUnknown is not fatal — the controller may be mid-reboot — so both
// probe failures are only logged, with enough detail to tell "host
// unreachable" apart from "host reachable but unrecognized". Callers retry
// on their next cycle.
func (c *ProtectClient) probeFamily() Family {
	resp, primaryErr := c.http.R().Get(c.baseURL(FamilyUnifiOS) + "/")
	if primaryErr == nil && resp.Header().Get("X-CSRF-Token") != "" {
		// The unified OS fronts the API with a proxy that handles
		// connection reuse properly; keepalive is safe from here on.
		c.http.SetCloseConnection(false)
		c.mu.Lock()
		c.keepalive = true
		c.mu.Unlock()
		return FamilyUnifiOS
	}

	legacyResp, legacyErr := c.http.R().Get(c.baseURL(FamilyLegacy) + "/")
	if legacyErr == nil && legacyResp.StatusCode() < 400 {
		return FamilyLegacy
	}

	if primaryErr != nil && legacyErr != nil {
		c.log.Debug("controller unreachable on both probes",
			zap.String("address", c.cfg.Address),
			zap.NamedError("primary", primaryErr),
			zap.NamedError("legacy", legacyErr),
		)
	} else {
		c.log.Debug("host reachable but matched no known controller family",
			zap.String("address", c.cfg.Address),
		)
	}
	return FamilyUnknown
}
