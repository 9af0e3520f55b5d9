package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	contentTypeJSON          = "application/json"
	maxStrictBodyBytes int64 = 1 << 20 // matches the server BodyLimit
)

// bindStrictJSON decodes exactly one JSON document into dst. Unknown fields,
// trailing data and non-JSON content types are rejected.
func bindStrictJSON(c echo.Context, dst any) error {
	mediaType := strings.ToLower(c.Request().Header.Get(echo.HeaderContentType))
	if !strings.HasPrefix(mediaType, contentTypeJSON) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, msgContentTypeJSONRequired)
	}
	if err := decodeStrict(io.LimitReader(c.Request().Body, maxStrictBodyBytes), dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidRequestBody)
	}
	return nil
}

// bindOptionalJSON is bindStrictJSON for endpoints whose body may be omitted.
// Without a body dst keeps its zero value.
func bindOptionalJSON(c echo.Context, dst any) error {
	if !hasBody(c) {
		return nil
	}
	return bindStrictJSON(c, dst)
}

func decodeStrict(r io.Reader, dst any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func hasBody(c echo.Context) bool {
	req := c.Request()
	return req.ContentLength > 0 || (req.ContentLength < 0 && req.Header.Get(echo.HeaderContentType) != "")
}
