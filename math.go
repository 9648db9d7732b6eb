package vkcore

import lin "github.com/xlab/linmath"

// VulkanProjectionMat converts an OpenGL-style projection matrix to a
// Vulkan-style one: Vulkan has a top-left clip space with a [0, 1] depth
// range instead of [-1, 1]. linmath outputs GL-style clip-space matrices,
// so this applies the standard fixup before the per-object data lands in
// the view uniform buffer (spec §3, "Descriptor provision", class (a)).
func VulkanProjectionMat(out *lin.Mat4x4, proj *lin.Mat4x4) {
	out.Fill(1.0)
	// Flip Y: X = -1, Y = -1 is top-left in Vulkan.
	out.ScaleAniso(out, 1.0, -1.0, 1.0)
	// Z depth is [0, 1] instead of [-1, 1].
	out.ScaleAniso(out, 1.0, 1.0, 0.5)
	out.Translate(0.0, 0.0, 1.0)
	out.Mult(out, proj)
}

// ObjectMVP folds model, view and proj (a GL-style projection, e.g. fresh
// out of Mat4x4.Perspective) through VulkanProjectionMat and multiplies
// them down to one combined matrix, returned as the raw bytes Renderer.
// SetViewData stages into the per-frame view uniform (spec §4.5 descriptor
// class (a)) — the same single-combined-MVP convention the pack's GLTF
// viewer uploads per frame (MVP.Mult(&r.projectionMatrix, &r.viewMatrix)).
func ObjectMVP(model, view, proj *lin.Mat4x4) []byte {
	var vkProj lin.Mat4x4
	VulkanProjectionMat(&vkProj, proj)

	var mvp lin.Mat4x4
	mvp.Mult(&vkProj, view)
	mvp.Mult(&mvp, model)
	return mvp.Data()
}
