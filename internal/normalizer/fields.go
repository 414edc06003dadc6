package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexStrings accepts a single string or an array of strings
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "" {
			*f = flexStrings{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or string array, got %s", data)
	}
	*f = list
	return nil
}

// flexBool accepts a JSON boolean or its string spelling
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1", "yes":
		*f = true
	case "false", "0", "no", "", "null":
		*f = false
	default:
		return fmt.Errorf("expected boolean, got %s", data)
	}
	return nil
}

// flexInt accepts a JSON number or a numeric string. Negative values and
// floats outside the int64 range read as 0.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	*f = 0
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil && !errors.Is(ferr, strconv.ErrRange) {
			return fmt.Errorf("expected integer, got %s", data)
		}
		if math.IsNaN(fl) || math.IsInf(fl, 0) || fl < 0 || fl >= math.MaxInt64 {
			return nil
		}
		n = int64(fl)
	}
	if n > 0 {
		*f = flexInt(n)
	}
	return nil
}

// rawPackage lists every field spelling seen across package feeds
type rawPackage struct {
	Package       flexString  `json:"package"`
	ID            flexString  `json:"id"`
	DName         flexString  `json:"dname"`
	Name          flexString  `json:"name"`
	Desc          flexString  `json:"desc"`
	Description   flexString  `json:"description"`
	Version       flexString  `json:"version"`
	Link          flexString  `json:"link"`
	URL           flexString  `json:"url"`
	Icon          flexString  `json:"icon"`
	Thumbnail     flexStrings `json:"thumbnail"`
	ThumbnailURL  flexString  `json:"thumbnail_url"`
	Maintainer    flexString  `json:"maintainer"`
	MaintainerURL flexString  `json:"maintainer_url"`
	Changelog     flexString  `json:"changelog"`
	Beta          flexBool    `json:"beta"`
	Size          flexInt     `json:"size"`
	MD5           flexString  `json:"md5"`
}

func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
