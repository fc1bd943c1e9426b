// Package crawler defines the domain model of the catalog harvester: identifier
// ranges, catalog entities, the capability interfaces the crawl loop depends on
// (checkpoint store, batch fetcher, classifier, publisher) and the error
// taxonomy shared by their implementations.
package crawler
