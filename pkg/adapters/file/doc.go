// Package file loads contributions from declarative YAML or JSON tree files.
//
//	contributions:
//	  - name: menus
//	    parent: root
//	    priority: 0
//	    states:
//	      - id: menu
//	        children: [{id: menu/main}, {id: menu/options}]
//
// Every contribution becomes a registry.Descriptor, so files and Go code can
// contribute to the same machine and may reference each other's states.
package file
