// Command specscraper extracts product specifications from a rendered product page.
//
//	specscraper scrape https://sieportal.siemens.com/en-ww/products-services/detail/3RT2017-1HA41
//	specscraper decode page-source.txt
package main
