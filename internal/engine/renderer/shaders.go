package renderer

// GLSL sources for the overlay's two passes. The depth pair renders into
// the shadow map from the sun; the lit pair does Lambert shading with a
// PCF shadow lookup. Each pair exists twice, for single meshes (uModel
// uniform) and instanced meshes (per-instance mat4 at locations 2..5).

const litVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 uViewProjection;
uniform mat4 uModel;
uniform mat4 uSunViewProjection;

out vec3 vNormal;
out vec4 vSunSpacePos;

void main() {
	vec4 world = uModel * vec4(aPos, 1.0);
	vNormal = mat3(uModel) * aNormal;
	vSunSpacePos = uSunViewProjection * world;
	gl_Position = uViewProjection * world;
}
`

const litInstancedVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in mat4 aInstance;

uniform mat4 uViewProjection;
uniform mat4 uSunViewProjection;

out vec3 vNormal;
out vec4 vSunSpacePos;

void main() {
	vec4 world = aInstance * vec4(aPos, 1.0);
	vNormal = mat3(aInstance) * aNormal;
	vSunSpacePos = uSunViewProjection * world;
	gl_Position = uViewProjection * world;
}
`

const litFragmentSrc = `
#version 410 core

in vec3 vNormal;
in vec4 vSunSpacePos;

uniform vec3 uColor;
uniform float uOpacity;
uniform vec3 uAmbient;
uniform vec3 uSunDirection;
uniform vec3 uSunColor;
uniform float uSunIntensity;
uniform sampler2D uShadowMap;
uniform float uShadowsEnabled;

out vec4 fragColor;

float shadowFactor() {
	if (uShadowsEnabled < 0.5) {
		return 1.0;
	}
	vec3 proj = vSunSpacePos.xyz / vSunSpacePos.w * 0.5 + 0.5;
	if (proj.z > 1.0 || proj.x < 0.0 || proj.x > 1.0 || proj.y < 0.0 || proj.y > 1.0) {
		return 1.0;
	}
	float bias = 0.0015;
	vec2 texel = 1.0 / vec2(textureSize(uShadowMap, 0));
	float lit = 0.0;
	for (int dx = -1; dx <= 1; dx++) {
		for (int dy = -1; dy <= 1; dy++) {
			float depth = texture(uShadowMap, proj.xy + vec2(dx, dy) * texel).r;
			lit += proj.z - bias > depth ? 0.35 : 1.0;
		}
	}
	return lit / 9.0;
}

void main() {
	vec3 n = normalize(vNormal);
	float diffuse = max(dot(n, normalize(uSunDirection)), 0.0);
	vec3 light = uAmbient + uSunColor * uSunIntensity * diffuse * shadowFactor();
	fragColor = vec4(uColor * light, uOpacity);
}
`

const depthVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;

uniform mat4 uSunViewProjection;
uniform mat4 uModel;

void main() {
	gl_Position = uSunViewProjection * uModel * vec4(aPos, 1.0);
}
`

const depthInstancedVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 2) in mat4 aInstance;

uniform mat4 uSunViewProjection;

void main() {
	gl_Position = uSunViewProjection * aInstance * vec4(aPos, 1.0);
}
`

const depthFragmentSrc = `
#version 410 core

void main() {
}
`
