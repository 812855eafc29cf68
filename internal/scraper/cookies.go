package scraper

import (
	"math"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

func fromNetworkCookies(in []*network.Cookie) []models.Cookie {
	out := make([]models.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		expires := c.Expires
		if c.Session || expires < 0 {
			expires = 0
		}
		out = append(out, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}

func toCookieParams(in []models.Cookie) []*network.CookieParam {
	out := make([]*network.CookieParam, 0, len(in))
	for _, c := range in {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			t := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
			p.Expires = &t
		}
		out = append(out, p)
	}
	return out
}
