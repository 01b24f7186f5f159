package config

import "fmt"

type FeedConfig struct {
	CompanyName string
	ProductName string
	Language    string
}

// BuildProdID formats the iCalendar PRODID carried by exported feeds.
func (cfg *FeedConfig) BuildProdID() string {
	return fmt.Sprintf("-//%s//%s//%s", cfg.CompanyName, cfg.ProductName, cfg.Language)
}
