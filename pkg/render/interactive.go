package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"dicomto3d/internal/models"
)

// Two-tone color scheme of the interactive render: one tone for the
// front faces, one for the back faces.
const (
	frontTone = "#70a8a0"
	backTone  = "#d88c9a"
)

// threeVersion is the pinned three.js release loaded by the generated
// page. Releases after r147 drop the non-module OrbitControls file and
// releases from r160 drop the UMD build, so the pin must stay at or
// below r147 for both script tags to resolve.
const threeVersion = "0.147.0"

// SaveInteractive writes a self-contained HTML page with an orbitable
// triangulated-surface render of the mesh.
func SaveInteractive(path string, m *models.Mesh) error {
	if len(m.Faces) == 0 {
		return fmt.Errorf("mesh has no faces to render")
	}

	positions := make([]float64, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		positions = append(positions, v.X, v.Y, v.Z)
	}
	indices := make([]int, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		indices = append(indices, f[0], f[1], f[2])
	}

	posJSON, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("failed to encode vertices: %w", err)
	}
	idxJSON, err := json.Marshal(indices)
	if err != nil {
		return fmt.Errorf("failed to encode faces: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML file: %w", err)
	}
	defer f.Close()

	data := struct {
		Positions, Indices  template.JS
		FrontTone, BackTone string
		ThreeVersion        string
		Vertices, Faces     int
	}{
		Positions:    template.JS(posJSON),
		Indices:      template.JS(idxJSON),
		FrontTone:    frontTone,
		BackTone:     backTone,
		ThreeVersion: threeVersion,
		Vertices:     len(m.Vertices),
		Faces:        len(m.Faces),
	}
	if err := interactiveTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	return nil
}

var interactiveTemplate = template.Must(template.New("interactive").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>dicomto3d surface render</title>
<style>body { margin: 0; } #info { position: absolute; color: #ccc; font-family: monospace; padding: 8px; }</style>
</head>
<body>
<div id="info">{{.Vertices}} vertices, {{.Faces}} faces &mdash; drag to orbit, wheel to zoom</div>
<script src="https://unpkg.com/three@{{.ThreeVersion}}/build/three.min.js"></script>
<script src="https://unpkg.com/three@{{.ThreeVersion}}/examples/js/controls/OrbitControls.js"></script>
<script>
const positions = new Float32Array({{.Positions}});
const indices = {{.Indices}};

const scene = new THREE.Scene();
scene.background = new THREE.Color(0x111111);
const camera = new THREE.PerspectiveCamera(60, window.innerWidth / window.innerHeight, 0.1, 1e5);
const renderer = new THREE.WebGLRenderer({ antialias: true });
renderer.setSize(window.innerWidth, window.innerHeight);
document.body.appendChild(renderer.domElement);

const geometry = new THREE.BufferGeometry();
geometry.setAttribute('position', new THREE.BufferAttribute(positions, 3));
geometry.setIndex(indices);
geometry.computeVertexNormals();
geometry.computeBoundingSphere();

const front = new THREE.MeshLambertMaterial({ color: '{{.FrontTone}}', side: THREE.FrontSide });
const back = new THREE.MeshLambertMaterial({ color: '{{.BackTone}}', side: THREE.BackSide });
scene.add(new THREE.Mesh(geometry, back));
scene.add(new THREE.Mesh(geometry, front));

scene.add(new THREE.AmbientLight(0xffffff, 0.4));
const light = new THREE.DirectionalLight(0xffffff, 0.9);
light.position.set(1, 1, 2);
scene.add(light);

const sphere = geometry.boundingSphere;
camera.position.set(sphere.center.x, sphere.center.y - 2.5 * sphere.radius, sphere.center.z + sphere.radius);
camera.lookAt(sphere.center);

const controls = new THREE.OrbitControls(camera, renderer.domElement);
controls.target.copy(sphere.center);

function animate() {
  requestAnimationFrame(animate);
  controls.update();
  renderer.render(scene, camera);
}
animate();

window.addEventListener('resize', () => {
  camera.aspect = window.innerWidth / window.innerHeight;
  camera.updateProjectionMatrix();
  renderer.setSize(window.innerWidth, window.innerHeight);
});
</script>
</body>
</html>
`))
