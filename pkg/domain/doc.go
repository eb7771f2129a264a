/*
Package domain contains the core domain models of the Railyard layout engine.

It defines catalog definitions, evaluated geometry and the layout aggregate.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - ComponentDefinition: A catalog entry (straight, curve, switch variant, crossing).
  - ComponentGeometry: Local connectors and a path descriptor for one definition.
  - Layout: Placed items, connections between their endpoints and decorative shapes.
  - LayoutDiff: The change set between two layouts, streamed to clients.
*/
package domain
