/*
Package ports defines the driven ports (interfaces) of the Railyard engine.

These interfaces decouple the core from external implementations, allowing
layouts to be stored in memory, files, Redis or SQLite and catalogs to be read
from files, Loam repositories or code.

# Key Interfaces

  - CatalogLoader: Loads the component catalog (optionally Watchable for hot reload).
  - LayoutStore: Persists and loads layouts.
  - DistributedLocker: Serializes edits of one layout across replicas.
*/
package ports
