package renderer

// Shared fullscreen quad vertex stage.
const quadVertexShader = `#version 410
layout(location = 0) in vec2 pos;
out vec2 uv;

void main() {
	uv = pos * 0.5 + 0.5;
	gl_Position = vec4(pos, 0.0, 1.0);
}
`

// Camera pass: per-pixel primary ray origin and direction with lens
// defocus and sub-pixel jitter, written to two float targets.
const cameraFragmentShader = `#version 410
in vec2 uv;
layout(location = 0) out vec4 rayOrigin;
layout(location = 1) out vec4 rayDir;

uniform vec3 eye;
uniform vec3 viewDir;
uniform float fovScale;
uniform vec2 lensFeatures; // (1 - 1/focalDepth, aperture)
uniform vec2 resolution;
uniform float seed;

float rand(vec2 co, float salt) {
	return fract(sin(dot(co + salt, vec2(12.9898, 78.233))) * 43758.5453);
}

void main() {
	vec3 forward = normalize(viewDir);
	vec3 right = normalize(cross(forward, vec3(0.0, 1.0, 0.0)));
	vec3 up = cross(right, forward);

	vec2 jitter = vec2(rand(uv, seed), rand(uv, seed + 1.0)) - 0.5;
	vec2 ndc = (uv * resolution + jitter) / resolution * 2.0 - 1.0;
	ndc.x *= resolution.x / resolution.y;

	vec3 dir = normalize(forward + (right * ndc.x + up * ndc.y) * fovScale);

	// Thin lens: offset the origin inside the aperture disc and aim at the
	// focal plane point.
	float focalScale = 1.0 / (1.0 - lensFeatures.x);
	float r = sqrt(rand(uv, seed + 2.0)) * lensFeatures.y;
	float phi = rand(uv, seed + 3.0) * 6.28318530718;
	vec3 lensOffset = (right * cos(phi) + up * sin(phi)) * r;

	vec3 focusPoint = eye + dir * focalScale;
	vec3 origin = eye + lensOffset;

	rayOrigin = vec4(origin, 1.0);
	rayDir = vec4(normalize(focusPoint - origin), 0.0);
}
`

// Tracer pass: one path-traced sample per pixel accumulated on top of the
// prior accumulator. The scene arrives as the packed float textures emitted
// by the compiler; the first three cells of every bvh record are int32 bit
// patterns recovered with floatBitsToInt.
const tracerFragmentShader = `#version 410
in vec2 uv;
out vec4 outColor;

uniform sampler2D accTex;
uniform sampler2D rayOriginTex;
uniform sampler2D rayDirTex;

uniform sampler2D bvhTex;
uniform sampler2D triTex;
uniform sampler2D normTex;
uniform sampler2D uvTex;
uniform sampler2D matTex;
uniform sampler2D lightTex;
uniform sampler2DArray atlasTex;
uniform sampler2D envTex;

uniform uvec4 radianceBins[ENV_BINS];
uniform ivec2 lightRanges[NUM_LIGHT_RANGES];
uniform int numLightRanges;

uniform float sampleIndex;
uniform float envTheta;
uniform float resScale;

#define MAX_T 1e6
#define EPSILON 1e-6
#define MAX_BOUNCES 6
#define STACK_SIZE 48
#define PI 3.14159265359

float gSeed;

float rand(vec2 co) {
	gSeed += 1.0;
	return fract(sin(dot(co, vec2(12.9898, 78.233)) + gSeed) * 43758.5453);
}

vec3 fetch3(sampler2D tex, int index) {
	ivec2 size = textureSize(tex, 0);
	return texelFetch(tex, ivec2(index % size.x, index / size.x), 0).rgb;
}

vec2 fetch2(sampler2D tex, int index) {
	ivec2 size = textureSize(tex, 0);
	return texelFetch(tex, ivec2(index % size.x, index / size.x), 0).rg;
}

struct Hit {
	float t;
	int tri;
	vec3 bary;
};

float intersectBox(vec3 origin, vec3 invDir, vec3 bmin, vec3 bmax) {
	vec3 t1 = (bmin - origin) * invDir;
	vec3 t2 = (bmax - origin) * invDir;
	vec3 lo = min(t1, t2);
	vec3 hi = max(t1, t2);
	float tmin = max(lo.x, max(lo.y, lo.z));
	float tmax = min(hi.x, min(hi.y, hi.z));
	return (tmax >= tmin && tmax >= 0.0) ? tmin : MAX_T;
}

bool intersectTriangle(vec3 origin, vec3 dir, int tri, inout Hit hit) {
	vec3 v0 = fetch3(triTex, tri * 3);
	vec3 v1 = fetch3(triTex, tri * 3 + 1);
	vec3 v2 = fetch3(triTex, tri * 3 + 2);

	vec3 e1 = v1 - v0;
	vec3 e2 = v2 - v0;
	vec3 pvec = cross(dir, e2);
	float det = dot(e1, pvec);
	if (abs(det) < 1e-12) return false;
	float invDet = 1.0 / det;

	vec3 tvec = origin - v0;
	float u = dot(tvec, pvec) * invDet;
	if (u < 0.0 || u > 1.0) return false;

	vec3 qvec = cross(tvec, e1);
	float v = dot(dir, qvec) * invDet;
	if (v < 0.0 || u + v > 1.0) return false;

	float t = dot(e2, qvec) * invDet;
	if (t <= EPSILON || t >= hit.t) return false;

	hit.t = t;
	hit.tri = tri;
	hit.bary = vec3(1.0 - u - v, u, v);
	return true;
}

Hit traverse(vec3 origin, vec3 dir) {
	Hit hit;
	hit.t = MAX_T;
	hit.tri = -1;

	vec3 invDir = 1.0 / dir;
	int stack[STACK_SIZE];
	int sp = 0;
	stack[sp++] = 0;

	while (sp > 0) {
		int node = stack[--sp];
		vec3 c0 = fetch3(bvhTex, node * 3);
		vec3 bmin = fetch3(bvhTex, node * 3 + 1);
		vec3 bmax = fetch3(bvhTex, node * 3 + 2);

		if (intersectBox(origin, invDir, bmin, bmax) >= hit.t) continue;

		int left = floatBitsToInt(c0.x);
		int right = floatBitsToInt(c0.y);
		int triBase = floatBitsToInt(c0.z);

		if (left < 0) {
			for (int i = 0; i < LEAF_SIZE; i++) {
				intersectTriangle(origin, dir, triBase + i, hit);
			}
		} else if (sp + 2 <= STACK_SIZE) {
			stack[sp++] = right;
			stack[sp++] = left;
		}
	}
	return hit;
}

vec3 environment(vec3 dir) {
	float theta = acos(clamp(dir.y, -1.0, 1.0));
	float phi = atan(dir.z, dir.x) + envTheta;
	vec2 envUV = vec2(phi / (2.0 * PI), theta / PI);
	return texture(envTex, envUV).rgb;
}

vec3 orthoBasisSample(vec3 n, float u1, float u2) {
	// Cosine weighted hemisphere around n.
	float r = sqrt(u1);
	float phi = 2.0 * PI * u2;
	vec3 a = abs(n.y) < 0.99 ? vec3(0.0, 1.0, 0.0) : vec3(1.0, 0.0, 0.0);
	vec3 t = normalize(cross(a, n));
	vec3 b = cross(n, t);
	return normalize(t * (r * cos(phi)) + b * (r * sin(phi)) + n * sqrt(max(0.0, 1.0 - u1)));
}

void surfaceAt(Hit hit, out vec3 n, out vec2 st, out vec4 indices, out vec3 emittance, out vec2 iorDielectric) {
	vec3 n0 = fetch3(normTex, hit.tri * 9);
	vec3 n1 = fetch3(normTex, hit.tri * 9 + 3);
	vec3 n2 = fetch3(normTex, hit.tri * 9 + 6);
	n = normalize(n0 * hit.bary.x + n1 * hit.bary.y + n2 * hit.bary.z);

	vec2 uv0 = fetch2(uvTex, hit.tri * 3);
	vec2 uv1 = fetch2(uvTex, hit.tri * 3 + 1);
	vec2 uv2 = fetch2(uvTex, hit.tri * 3 + 2);
	st = uv0 * hit.bary.x + uv1 * hit.bary.y + uv2 * hit.bary.z;

	vec3 m0 = fetch3(matTex, hit.tri * 4);
	vec3 m1 = fetch3(matTex, hit.tri * 4 + 1);
	vec3 m2 = fetch3(matTex, hit.tri * 4 + 2);
	vec3 m3 = fetch3(matTex, hit.tri * 4 + 3);
	indices = vec4(m0.xyz, m1.x);
	emittance = m2;
	iorDielectric = vec2(m3.x, m3.y);
}

void main() {
	vec2 fragCoord = uv;
	vec3 origin = texture(rayOriginTex, fragCoord).xyz;
	vec3 dir = texture(rayDirTex, fragCoord).xyz;
	gSeed = sampleIndex;

	vec3 radiance = vec3(0.0);
	vec3 throughput = vec3(1.0);

	for (int bounce = 0; bounce < MAX_BOUNCES; bounce++) {
		Hit hit = traverse(origin, dir);
		if (hit.tri < 0) {
			radiance += throughput * environment(dir);
			break;
		}

		vec3 n;
		vec2 st;
		vec4 indices;
		vec3 emittance;
		vec2 iorDielectric;
		surfaceAt(hit, n, st, indices, emittance, iorDielectric);

		radiance += throughput * emittance;

		vec3 albedo = texture(atlasTex, vec3(st, indices.x)).rgb;
		vec3 pmr = texture(atlasTex, vec3(st, indices.y)).rgb;

		vec3 p = origin + dir * hit.t;
		if (dot(n, dir) > 0.0) n = -n;

#ifdef USE_EXPLICIT
		// Next event estimation against one uniformly chosen light range.
		if (numLightRanges > 0) {
			int range = int(rand(fragCoord) * float(numLightRanges));
			ivec2 lr = lightRanges[min(range, numLightRanges - 1)];
			int pick = lr.x + int(rand(fragCoord) * float(lr.y - lr.x + 1));

			vec3 l0 = fetch3(lightTex, pick * 3);
			vec3 l1 = fetch3(lightTex, pick * 3 + 1);
			vec3 l2 = fetch3(lightTex, pick * 3 + 2);
			vec3 lp = l0 * (1.0 - rand(fragCoord)) + l1 * rand(fragCoord) * 0.5 + l2 * rand(fragCoord) * 0.5;

			vec3 toLight = lp - p;
			float distSq = dot(toLight, toLight);
			vec3 ldir = normalize(toLight);
			float cosTheta = dot(n, ldir);
			if (cosTheta > 0.0) {
				Hit shadow = traverse(p + n * 1e-4, ldir);
				if (shadow.t * shadow.t >= distSq - 1e-3) {
					float area = length(cross(l1 - l0, l2 - l0)) * 0.5;
					radiance += throughput * albedo * cosTheta * area / max(distSq, 1e-4);
				}
			}
		}
#endif

		float metallic = pmr.x;
		float roughness = max(pmr.y, 0.05);

		if (iorDielectric.y > 0.0) {
			// Dielectric: refract or reflect on the fresnel coin flip.
			float ior = iorDielectric.x;
			float cosi = clamp(dot(-dir, n), 0.0, 1.0);
			float f0 = pow((1.0 - ior) / (1.0 + ior), 2.0);
			float fresnel = f0 + (1.0 - f0) * pow(1.0 - cosi, 5.0);
			if (rand(fragCoord) < fresnel) {
				dir = reflect(dir, n);
			} else {
				dir = refract(dir, n, 1.0 / ior);
				if (dot(dir, dir) < 0.5) dir = reflect(dir, n);
			}
			origin = p + dir * 1e-4;
			throughput *= albedo;
		} else if (rand(fragCoord) < metallic) {
			vec3 refl = reflect(dir, n);
			dir = normalize(mix(refl, orthoBasisSample(n, rand(fragCoord), rand(fragCoord)), roughness * roughness));
			origin = p + n * 1e-4;
			throughput *= albedo;
		} else {
			dir = orthoBasisSample(n, rand(fragCoord), rand(fragCoord));
			origin = p + n * 1e-4;
			throughput *= albedo;
		}

		// Russian roulette after a few bounces.
		if (bounce > 2) {
			float q = max(throughput.x, max(throughput.y, throughput.z));
			if (rand(fragCoord) > q) break;
			throughput /= max(q, 1e-4);
		}
	}

	vec4 prior = texture(accTex, fragCoord);
	outColor = prior + vec4(radiance, 1.0);
}
`

// Debug tracer: paints interpolated shading normals, handy for verifying
// buffer layouts without waiting for convergence.
const debugTracerShader = `#version 410
in vec2 uv;
out vec4 outColor;

uniform sampler2D accTex;
uniform sampler2D rayOriginTex;
uniform sampler2D rayDirTex;

uniform sampler2D bvhTex;
uniform sampler2D triTex;
uniform sampler2D normTex;
uniform sampler2D uvTex;
uniform sampler2D matTex;
uniform sampler2D lightTex;
uniform sampler2DArray atlasTex;
uniform sampler2D envTex;

uniform uvec4 radianceBins[ENV_BINS];
uniform ivec2 lightRanges[NUM_LIGHT_RANGES];
uniform int numLightRanges;

uniform float sampleIndex;
uniform float envTheta;
uniform float resScale;

#define MAX_T 1e6

vec3 fetch3(sampler2D tex, int index) {
	ivec2 size = textureSize(tex, 0);
	return texelFetch(tex, ivec2(index % size.x, index / size.x), 0).rgb;
}

float intersectBox(vec3 origin, vec3 invDir, vec3 bmin, vec3 bmax) {
	vec3 t1 = (bmin - origin) * invDir;
	vec3 t2 = (bmax - origin) * invDir;
	vec3 lo = min(t1, t2);
	vec3 hi = max(t1, t2);
	float tmin = max(lo.x, max(lo.y, lo.z));
	float tmax = min(hi.x, min(hi.y, hi.z));
	return (tmax >= tmin && tmax >= 0.0) ? tmin : MAX_T;
}

void main() {
	vec3 origin = texture(rayOriginTex, uv).xyz;
	vec3 dir = texture(rayDirTex, uv).xyz;
	vec3 invDir = 1.0 / dir;

	float bestT = MAX_T;
	int bestTri = -1;
	int visited = 0;

	int stack[48];
	int sp = 0;
	stack[sp++] = 0;
	while (sp > 0) {
		int node = stack[--sp];
		visited++;
		vec3 c0 = fetch3(bvhTex, node * 3);
		vec3 bmin = fetch3(bvhTex, node * 3 + 1);
		vec3 bmax = fetch3(bvhTex, node * 3 + 2);
		if (intersectBox(origin, invDir, bmin, bmax) >= bestT) continue;

		int left = floatBitsToInt(c0.x);
		int triBase = floatBitsToInt(c0.z);
		if (left < 0) {
			for (int i = 0; i < LEAF_SIZE; i++) {
				int tri = triBase + i;
				vec3 v0 = fetch3(triTex, tri * 3);
				vec3 v1 = fetch3(triTex, tri * 3 + 1);
				vec3 v2 = fetch3(triTex, tri * 3 + 2);
				vec3 e1 = v1 - v0;
				vec3 e2 = v2 - v0;
				vec3 pvec = cross(dir, e2);
				float det = dot(e1, pvec);
				if (abs(det) < 1e-12) continue;
				float inv = 1.0 / det;
				vec3 tvec = origin - v0;
				float u = dot(tvec, pvec) * inv;
				if (u < 0.0 || u > 1.0) continue;
				vec3 qvec = cross(tvec, e1);
				float v = dot(dir, qvec) * inv;
				if (v < 0.0 || u + v > 1.0) continue;
				float t = dot(e2, qvec) * inv;
				if (t > 1e-6 && t < bestT) {
					bestT = t;
					bestTri = tri;
				}
			}
		} else {
			stack[sp++] = floatBitsToInt(c0.y);
			stack[sp++] = left;
		}
	}

	vec3 color = vec3(float(visited) / 64.0, 0.0, 0.0);
	if (bestTri >= 0) {
		vec3 n = normalize(fetch3(normTex, bestTri * 9));
		color = n * 0.5 + 0.5;
	}
	outColor = texture(accTex, uv) + vec4(color, 1.0);
}
`

// Present pass: average the accumulator, apply exposure, saturation and
// gamma, and stretch by the inverse resolution scale used while rendering.
const presentFragmentShader = `#version 410
in vec2 uv;
out vec4 outColor;

uniform sampler2D accTex;
uniform float samples;
uniform float exposure;
uniform float saturation;
uniform float resScale;

void main() {
	vec2 scaled = uv * resScale;
	vec4 acc = texture(accTex, scaled);
	vec3 color = acc.rgb / max(max(acc.a, samples), 1.0);

	color = vec3(1.0) - exp(-color * exposure);

	float luma = dot(color, vec3(0.2126, 0.7152, 0.0722));
	color = mix(vec3(luma), color, saturation);

	outColor = vec4(pow(color, vec3(1.0 / 2.2)), 1.0);
}
`
