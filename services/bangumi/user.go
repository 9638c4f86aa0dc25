package bangumi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// GetMe returns nil, nil without a token or when the token is rejected.
func (api *Api) GetMe(ctx context.Context) (*UserInfo, error) {
	if api.rc.Load().token == "" {
		return nil, nil
	}
	resp, err := api.do(ctx, http.MethodGet, "/v0/me", nil, nil)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		log.Warn("bangumi token is not authorized")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp)
	}
	var u UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &u, nil
}
